package decision

import (
	"fmt"
	"time"

	"sandwach/internal/models"
)

// Crossing declares which direction a rule's threshold is crossed in, so
// the engine can locate the onset hour without knowing the rule's logic.
type Crossing int

const (
	CrossNone Crossing = iota
	CrossBelow
	CrossAbove
)

// Rule is a pure predicate over the window's extremal temperature and the
// current reading. Higher priority rules are tried first; the first one to
// fire decides the recommendation.
type Rule struct {
	Name      string
	Priority  int
	Crossing  Crossing
	Threshold func(models.ThresholdConfig) float64
	Fires     func(extremal, current float64, cfg models.ThresholdConfig) *models.Action
	Qualify   func(pts []models.HourlyPoint, cfg models.ThresholdConfig, loc *time.Location) string
}

func actionPtr(a models.Action) *models.Action { return &a }

func sleepRules() []Rule {
	return []Rule{
		{
			Name:      "sleep_heat",
			Priority:  100,
			Crossing:  CrossBelow,
			Threshold: func(cfg models.ThresholdConfig) float64 { return cfg.HeatTriggerTemp },
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				if extremal <= cfg.HeatTriggerTemp {
					return actionPtr(models.ActionUseHeat)
				}
				return nil
			},
		},
		{
			Name:     "sleep_ac",
			Priority: 80,
			Crossing: CrossNone,
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				// The night never cools below the AC trigger.
				if extremal >= cfg.ACTriggerTemp {
					return actionPtr(models.ActionUseAC)
				}
				return nil
			},
		},
		{
			Name:      "sleep_windows",
			Priority:  60,
			Crossing:  CrossBelow,
			Threshold: func(cfg models.ThresholdConfig) float64 { return cfg.WindowSafeMax },
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				if current > cfg.WindowSafeMax && extremal <= cfg.WindowSafeMax && extremal > cfg.HeatTriggerTemp {
					return actionPtr(models.ActionOpenWindows)
				}
				return nil
			},
			Qualify: closeWindowsQualifier,
		},
		noActionRule(),
	}
}

func dayRules() []Rule {
	return []Rule{
		{
			Name:      "day_heat",
			Priority:  100,
			Crossing:  CrossBelow,
			Threshold: func(cfg models.ThresholdConfig) float64 { return cfg.HeatTriggerTemp },
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				if current <= cfg.HeatTriggerTemp {
					return actionPtr(models.ActionUseHeat)
				}
				return nil
			},
		},
		{
			Name:      "day_ac",
			Priority:  80,
			Crossing:  CrossAbove,
			Threshold: func(cfg models.ThresholdConfig) float64 { return cfg.ACTriggerTemp },
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				if extremal >= cfg.ACTriggerTemp {
					return actionPtr(models.ActionUseAC)
				}
				return nil
			},
		},
		{
			Name:      "day_windows",
			Priority:  60,
			Crossing:  CrossBelow,
			Threshold: func(cfg models.ThresholdConfig) float64 { return cfg.WindowSafeMax },
			Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
				// Currently hot outside but the day stays inside the safe range.
				if current > cfg.WindowSafeMax && extremal <= cfg.WindowSafeMax {
					return actionPtr(models.ActionOpenWindows)
				}
				return nil
			},
			Qualify: closeWindowsQualifier,
		},
		noActionRule(),
	}
}

func noActionRule() Rule {
	return Rule{
		Name:     "no_action",
		Priority: 0,
		Crossing: CrossNone,
		Fires: func(extremal, current float64, cfg models.ThresholdConfig) *models.Action {
			return actionPtr(models.ActionNone)
		},
	}
}

// closeWindowsQualifier tells the user when to close the windows again:
// either the forecast leaves the safe range or rain becomes likely.
func closeWindowsQualifier(pts []models.HourlyPoint, cfg models.ThresholdConfig, loc *time.Location) string {
	for _, p := range pts {
		if p.Temp < cfg.WindowSafeMin {
			return fmt.Sprintf("close windows by %s", p.Time.In(loc).Format("3pm"))
		}
	}
	for _, p := range pts {
		if cfg.RainCloseProb > 0 && p.PrecipProb >= cfg.RainCloseProb {
			return fmt.Sprintf("close windows before %s, rain likely", p.Time.In(loc).Format("3pm"))
		}
	}
	return ""
}
