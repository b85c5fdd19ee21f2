// Package scheduler fires the analysis pipeline at the configured daily
// trigger hours. Failures are logged and left for the next cycle; the
// record store guarantees a retried day is not delivered twice.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"sandwach/internal/advisor"
	"sandwach/internal/models"
)

type Scheduler struct {
	scheduler   *gocron.Scheduler
	advisor     *advisor.Advisor
	eveningHour int
	morningHour int
}

func New(adv *advisor.Advisor, loc *time.Location, eveningHour, morningHour int) *Scheduler {
	return &Scheduler{
		scheduler:   gocron.NewScheduler(loc),
		advisor:     adv,
		eveningHour: eveningHour,
		morningHour: morningHour,
	}
}

// Start registers the two daily jobs and starts the scheduler in the
// background.
func (s *Scheduler) Start() error {
	evening := fmt.Sprintf("%02d:00", s.eveningHour)
	if _, err := s.scheduler.Every(1).Day().At(evening).Do(func() {
		s.run(models.WindowSleep)
	}); err != nil {
		return fmt.Errorf("schedule evening analysis: %w", err)
	}

	morning := fmt.Sprintf("%02d:00", s.morningHour)
	if _, err := s.scheduler.Every(1).Day().At(morning).Do(func() {
		s.run(models.WindowDay)
	}); err != nil {
		return fmt.Errorf("schedule morning analysis: %w", err)
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: evening analysis at %s, morning analysis at %s", evening, morning)
	return nil
}

func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) run(w models.Window) {
	log.Printf("scheduler: running %s analysis", w)
	if err := s.advisor.RunWindow(w); err != nil {
		log.Printf("scheduler: %s analysis failed, retrying next cycle: %v", w, err)
		return
	}
	log.Printf("scheduler: %s analysis complete", w)
}
