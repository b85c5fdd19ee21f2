package notify

import (
	"fmt"
	"log"

	"sandwach/internal/metrics"
)

// Dispatcher fans a notification out to every configured channel. Delivery
// is considered attempted once every channel has been tried; an error is
// returned only when no channel accepted the message.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

func (d *Dispatcher) Dispatch(title, body string) error {
	if len(d.channels) == 0 {
		log.Printf("notify: no channels configured, dropping %q", title)
		return nil
	}

	var delivered int
	for _, ch := range d.channels {
		if err := ch.Send(title, body); err != nil {
			log.Printf("notify: %s delivery failed: %v", ch.Name(), err)
			metrics.NotificationsSent.WithLabelValues(ch.Name(), "error").Inc()
			continue
		}
		metrics.NotificationsSent.WithLabelValues(ch.Name(), "ok").Inc()
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("all %d notification channels failed", len(d.channels))
	}
	return nil
}
