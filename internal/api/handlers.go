package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sandwach/internal/cache"
	"sandwach/internal/decision"
	"sandwach/internal/models"
)

type recommendationResponse struct {
	Recommendation *models.Recommendation `json:"recommendation"`
	Stale          bool                   `json:"stale"`
}

// handleRecommendation serves the most recently computed recommendation for
// a window. It evaluates only when none has been computed since startup and
// never dispatches notifications.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	window, err := models.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, stale, ok := s.advisor.Latest(window)
	if !ok {
		rec, stale, err = s.advisor.Evaluate(window)
		if err != nil {
			writeEvaluationError(w, err)
			return
		}
	}

	writeJSON(w, recommendationResponse{Recommendation: rec, Stale: stale})
}

type forecastResponse struct {
	FetchedAt   time.Time            `json:"fetched_at"`
	CurrentTemp float64              `json:"current_temp"`
	Hourly      []models.HourlyPoint `json:"hourly"`
	Stale       bool                 `json:"stale"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	snap, stale, err := s.cache.Snapshot(false)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}
	writeJSON(w, forecastResponse{
		FetchedAt:   snap.FetchedAt,
		CurrentTemp: snap.CurrentTemp,
		Hourly:      snap.Hourly,
		Stale:       stale,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.RecentNotifications(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	writeJSON(w, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeEvaluationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cache.ErrNoData):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, decision.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
