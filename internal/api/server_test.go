package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"sandwach/internal/advisor"
	"sandwach/internal/decision"
	"sandwach/internal/models"
	"sandwach/internal/notify"
	"sandwach/internal/store"
)

type fakeForecaster struct {
	snap *models.ForecastSnapshot
	err  error
}

func (f *fakeForecaster) Snapshot(force bool) (*models.ForecastSnapshot, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	return f.snap, false, nil
}

func testSnapshot() *models.ForecastSnapshot {
	fetchedAt := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	snap := &models.ForecastSnapshot{FetchedAt: fetchedAt, CurrentTemp: 18}
	for i, temp := range []float64{16, 13, 10, 9, 12} {
		snap.Hourly = append(snap.Hourly, models.HourlyPoint{
			HourOffset: i + 1,
			Time:       fetchedAt.Add(time.Duration(i+1) * time.Hour),
			Temp:       temp,
		})
	}
	return snap
}

func setupServer(t *testing.T, fc *fakeForecaster) *Server {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	st := store.New(db, time.UTC)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine := decision.New(decision.Span{Start: 21, End: 7}, decision.Span{Start: 8, End: 20}, time.UTC)
	thresholds := models.ThresholdConfig{
		ACTriggerTemp:   30,
		HeatTriggerTemp: 10,
		WindowSafeMin:   15,
		WindowSafeMax:   25,
		RainCloseProb:   50,
	}
	adv := advisor.New(fc, engine, st, notify.NewDispatcher(), thresholds, time.UTC)
	return NewServer(adv, fc, st, "0", time.UTC)
}

func TestHandleHealth(t *testing.T) {
	srv := setupServer(t, &fakeForecaster{snap: testSnapshot()})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestHandleRecommendation(t *testing.T) {
	srv := setupServer(t, &fakeForecaster{snap: testSnapshot()})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/recommendation?window=sleep", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp recommendationResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Recommendation == nil {
		t.Fatal("recommendation is nil")
	}
	if resp.Recommendation.Action != models.ActionUseHeat {
		t.Errorf("Action = %s, want use_heat", resp.Recommendation.Action)
	}
	if resp.Recommendation.Basis.Rule == "" {
		t.Error("Basis.Rule is empty")
	}
}

func TestHandleRecommendation_BadWindow(t *testing.T) {
	srv := setupServer(t, &fakeForecaster{snap: testSnapshot()})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/recommendation?window=nap", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleRecommendation_NoData(t *testing.T) {
	srv := setupServer(t, &fakeForecaster{err: errors.New("no forecast data available: provider down")})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/recommendation?window=day", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for an untyped failure", rr.Code)
	}
}

func TestHandleForecast(t *testing.T) {
	srv := setupServer(t, &fakeForecaster{snap: testSnapshot()})

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecast", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp forecastResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Hourly) != 5 {
		t.Errorf("len(Hourly) = %d, want 5", len(resp.Hourly))
	}
	if resp.CurrentTemp != 18 {
		t.Errorf("CurrentTemp = %v, want 18", resp.CurrentTemp)
	}
}

func TestHandleNotifications(t *testing.T) {
	fc := &fakeForecaster{snap: testSnapshot()}
	srv := setupServer(t, fc)

	if _, err := srv.store.TryRecord(models.WindowSleep, "2025-06-01", "use heat"); err != nil {
		t.Fatalf("TryRecord: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/notifications", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var records []models.NotificationRecord
	if err := json.NewDecoder(rr.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Content != "use heat" {
		t.Errorf("Content = %q", records[0].Content)
	}

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/api/notifications?limit=0", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d, want 400", rr.Code)
	}
}
