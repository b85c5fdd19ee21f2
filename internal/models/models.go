package models

import (
	"fmt"
	"time"
)

// Window identifies which daily analysis span a recommendation covers.
type Window string

const (
	WindowSleep Window = "sleep"
	WindowDay   Window = "day"
)

func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowSleep, WindowDay:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// Action is the discrete climate-control recommendation.
type Action string

const (
	ActionUseAC       Action = "use_ac"
	ActionUseHeat     Action = "use_heat"
	ActionOpenWindows Action = "open_windows"
	ActionNone        Action = "no_action"
)

// HourlyPoint is one entry of a forecast time series. HourOffset is hours
// from the snapshot fetch time, not from midnight.
type HourlyPoint struct {
	HourOffset int       `json:"hour_offset"`
	Time       time.Time `json:"time"`
	Temp       float64   `json:"temp"`
	PrecipProb int       `json:"precip_prob"`
}

type ForecastSnapshot struct {
	FetchedAt   time.Time     `json:"fetched_at"`
	CurrentTemp float64       `json:"current_temp"`
	Hourly      []HourlyPoint `json:"hourly"`
}

// Valid reports whether the snapshot has a usable hourly series: non-empty
// with strictly increasing hour offsets.
func (s *ForecastSnapshot) Valid() bool {
	if s == nil || len(s.Hourly) == 0 {
		return false
	}
	for i := 1; i < len(s.Hourly); i++ {
		if s.Hourly[i].HourOffset <= s.Hourly[i-1].HourOffset {
			return false
		}
	}
	return true
}

type CacheEntry struct {
	Snapshot  *ForecastSnapshot `json:"snapshot"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (e *CacheEntry) Fresh(now time.Time) bool {
	return e != nil && e.Snapshot != nil && now.Before(e.ExpiresAt)
}

// ThresholdConfig holds the boundary values the rule set evaluates against.
// Immutable at evaluation time.
type ThresholdConfig struct {
	ACTriggerTemp   float64
	HeatTriggerTemp float64
	WindowSafeMin   float64
	WindowSafeMax   float64
	RainCloseProb   int
}

// Basis records the forecast values that triggered a decision, for
// explainability and deterministic test assertions.
type Basis struct {
	ExtremalTemp float64   `json:"extremal_temp"`
	OnsetOffset  int       `json:"onset_offset"`
	OnsetTime    time.Time `json:"onset_time"`
	CurrentTemp  float64   `json:"current_temp"`
	Rule         string    `json:"rule"`
}

type Recommendation struct {
	Window     Window    `json:"window"`
	Action     Action    `json:"action"`
	Qualifier  string    `json:"qualifier,omitempty"`
	Basis      Basis     `json:"basis"`
	ComputedAt time.Time `json:"computed_at"`
}

type NotificationRecord struct {
	ID      int64     `json:"id"`
	Window  Window    `json:"window"`
	DayKey  string    `json:"day_key"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}
