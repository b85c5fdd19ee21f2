package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sandwach/internal/advisor"
	"sandwach/internal/models"
	"sandwach/internal/store"
)

// Forecaster is the subset of the cache the API reads from.
type Forecaster interface {
	Snapshot(force bool) (*models.ForecastSnapshot, bool, error)
}

type Server struct {
	advisor *advisor.Advisor
	cache   Forecaster
	store   *store.Store
	port    string
	loc     *time.Location
}

func NewServer(adv *advisor.Advisor, cache Forecaster, st *store.Store, port string, loc *time.Location) *Server {
	return &Server{
		advisor: adv,
		cache:   cache,
		store:   st,
		port:    port,
		loc:     loc,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/recommendation", s.handleRecommendation)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/notifications", s.handleNotifications)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
