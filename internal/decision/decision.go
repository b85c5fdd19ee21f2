// Package decision turns a forecast snapshot into a climate-control
// recommendation by evaluating priority-ordered threshold rules against the
// extremal temperature of an analysis window.
package decision

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"sandwach/internal/models"
)

var ErrInsufficientData = errors.New("insufficient forecast data")

// A window shorter than this after selection cannot support a decision.
const minWindowPoints = 3

// Span is a daily wall-clock hour range [Start, End). Start > End wraps
// past midnight.
type Span struct {
	Start int
	End   int
}

func (sp Span) Contains(hour int) bool {
	if sp.Start <= sp.End {
		return hour >= sp.Start && hour < sp.End
	}
	return hour >= sp.Start || hour < sp.End
}

type Engine struct {
	sleepSpan Span
	daySpan   Span
	loc       *time.Location
	rules     map[models.Window][]Rule
	now       func() time.Time
}

func New(sleepSpan, daySpan Span, loc *time.Location) *Engine {
	e := &Engine{
		sleepSpan: sleepSpan,
		daySpan:   daySpan,
		loc:       loc,
		rules: map[models.Window][]Rule{
			models.WindowSleep: sleepRules(),
			models.WindowDay:   dayRules(),
		},
		now: time.Now,
	}
	for w := range e.rules {
		sortRules(e.rules[w])
	}
	return e
}

// AddRule registers an extra rule for a window. The evaluation loop is
// untouched; the rule slots in by priority.
func (e *Engine) AddRule(w models.Window, r Rule) {
	e.rules[w] = append(e.rules[w], r)
	sortRules(e.rules[w])
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
}

// Evaluate produces a recommendation for the given analysis window. The
// same snapshot and config always yield the same recommendation.
func (e *Engine) Evaluate(w models.Window, snap *models.ForecastSnapshot, cfg models.ThresholdConfig) (*models.Recommendation, error) {
	if !snap.Valid() {
		return nil, fmt.Errorf("%w: invalid snapshot", ErrInsufficientData)
	}

	pts := e.selectWindow(w, snap)
	if len(pts) < minWindowPoints {
		return nil, fmt.Errorf("%w: %d forecast hours in %s span, need %d", ErrInsufficientData, len(pts), w, minWindowPoints)
	}

	ext := extremalPoint(w, pts)

	for _, r := range e.rules[w] {
		action := r.Fires(ext.Temp, snap.CurrentTemp, cfg)
		if action == nil {
			continue
		}
		onset := onsetPoint(pts, r, ext, cfg)
		rec := &models.Recommendation{
			Window: w,
			Action: *action,
			Basis: models.Basis{
				ExtremalTemp: ext.Temp,
				OnsetOffset:  onset.HourOffset,
				OnsetTime:    onset.Time,
				CurrentTemp:  snap.CurrentTemp,
				Rule:         r.Name,
			},
			ComputedAt: e.now().UTC(),
		}
		if r.Qualify != nil {
			rec.Qualifier = r.Qualify(pts, cfg, e.loc)
		}
		return rec, nil
	}

	return nil, fmt.Errorf("no rule fired for %s window", w)
}

// selectWindow picks the hourly points whose local wall-clock hour falls in
// the window's span. Offsets are relative to the fetch time, so a span
// wrapping midnight selects correctly regardless of when the snapshot was
// taken.
func (e *Engine) selectWindow(w models.Window, snap *models.ForecastSnapshot) []models.HourlyPoint {
	span := e.daySpan
	if w == models.WindowSleep {
		span = e.sleepSpan
	}

	var pts []models.HourlyPoint
	for _, p := range snap.Hourly {
		if p.Time.Before(snap.FetchedAt) {
			continue
		}
		if span.Contains(p.Time.In(e.loc).Hour()) {
			pts = append(pts, p)
		}
	}
	return pts
}

// extremalPoint returns the minimum-temperature point for SLEEP (cold risk)
// and the maximum for DAY (heat risk). Ties resolve to the earliest offset.
func extremalPoint(w models.Window, pts []models.HourlyPoint) models.HourlyPoint {
	ext := pts[0]
	for _, p := range pts[1:] {
		if w == models.WindowSleep {
			if p.Temp < ext.Temp {
				ext = p
			}
		} else if p.Temp > ext.Temp {
			ext = p
		}
	}
	return ext
}

// onsetPoint finds the earliest point crossing the fired rule's threshold.
// When nothing crosses (or the rule has no crossing direction), the onset
// is the first occurrence of the extremal value.
func onsetPoint(pts []models.HourlyPoint, r Rule, ext models.HourlyPoint, cfg models.ThresholdConfig) models.HourlyPoint {
	switch r.Crossing {
	case CrossBelow:
		th := r.Threshold(cfg)
		for _, p := range pts {
			if p.Temp <= th {
				return p
			}
		}
	case CrossAbove:
		th := r.Threshold(cfg)
		for _, p := range pts {
			if p.Temp >= th {
				return p
			}
		}
	}
	for _, p := range pts {
		if p.Temp == ext.Temp {
			return p
		}
	}
	return ext
}
