// Package advisor runs the evaluation pipeline: fetch-or-reuse the
// forecast, decide, record once per (window, day), deliver.
package advisor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"sandwach/internal/decision"
	"sandwach/internal/metrics"
	"sandwach/internal/models"
	"sandwach/internal/notify"
)

type Forecaster interface {
	Snapshot(force bool) (*models.ForecastSnapshot, bool, error)
}

type Recorder interface {
	TryRecord(w models.Window, dayKey, content string) (bool, error)
}

type Dispatcher interface {
	Dispatch(title, body string) error
}

type latestEntry struct {
	rec   *models.Recommendation
	stale bool
}

type Advisor struct {
	cache      Forecaster
	engine     *decision.Engine
	recorder   Recorder
	dispatcher Dispatcher
	thresholds models.ThresholdConfig
	loc        *time.Location
	now        func() time.Time

	mu     sync.RWMutex
	latest map[models.Window]latestEntry
}

func New(cache Forecaster, engine *decision.Engine, recorder Recorder, dispatcher Dispatcher, thresholds models.ThresholdConfig, loc *time.Location) *Advisor {
	return &Advisor{
		cache:      cache,
		engine:     engine,
		recorder:   recorder,
		dispatcher: dispatcher,
		thresholds: thresholds,
		loc:        loc,
		now:        time.Now,
		latest:     make(map[models.Window]latestEntry),
	}
}

// Evaluate computes a recommendation for the window and retains it for the
// query API. It never dispatches notifications.
func (a *Advisor) Evaluate(w models.Window) (*models.Recommendation, bool, error) {
	snap, stale, err := a.cache.Snapshot(false)
	if err != nil {
		return nil, false, err
	}

	rec, err := a.engine.Evaluate(w, snap, a.thresholds)
	if err != nil {
		return nil, stale, err
	}
	metrics.Evaluations.WithLabelValues(string(w), string(rec.Action)).Inc()

	a.mu.Lock()
	a.latest[w] = latestEntry{rec: rec, stale: stale}
	a.mu.Unlock()

	return rec, stale, nil
}

// Latest returns the most recently computed recommendation for the window,
// if any, along with whether it was derived from stale forecast data.
func (a *Advisor) Latest(w models.Window) (*models.Recommendation, bool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.latest[w]
	return e.rec, e.stale, ok
}

// RunWindow performs one scheduled analysis cycle: evaluate, record the
// notification if this (window, day) has not been delivered yet, then fan
// out. The record insert is the at-most-once gate; channel failures after
// it are logged but never retried within the same day.
func (a *Advisor) RunWindow(w models.Window) error {
	rec, stale, err := a.Evaluate(w)
	if err != nil {
		return fmt.Errorf("evaluate %s window: %w", w, err)
	}

	body := notify.Render(rec, stale, a.loc)
	dayKey := a.now().In(a.loc).Format("2006-01-02")

	inserted, err := a.recorder.TryRecord(w, dayKey, body)
	if err != nil {
		return fmt.Errorf("record %s notification: %w", w, err)
	}
	if !inserted {
		log.Printf("advisor: %s recommendation for %s already delivered, skipping", w, dayKey)
		metrics.NotificationsSuppressed.Inc()
		return nil
	}

	log.Printf("advisor: %s window for %s: %s (%s)", w, dayKey, rec.Action, rec.Basis.Rule)
	if err := a.dispatcher.Dispatch(notify.Title, body); err != nil {
		log.Printf("advisor: dispatch failed: %v", err)
	}
	return nil
}
