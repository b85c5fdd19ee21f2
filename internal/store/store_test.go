package store

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"sandwach/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	store := New(db, time.UTC)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testSnapshot(fetchedAt time.Time) *models.ForecastSnapshot {
	return &models.ForecastSnapshot{
		FetchedAt:   fetchedAt,
		CurrentTemp: 72,
		Hourly: []models.HourlyPoint{
			{HourOffset: 1, Time: fetchedAt.Add(1 * time.Hour), Temp: 70, PrecipProb: 10},
			{HourOffset: 2, Time: fetchedAt.Add(2 * time.Hour), Temp: 68, PrecipProb: 20},
			{HourOffset: 3, Time: fetchedAt.Add(3 * time.Hour), Temp: 65, PrecipProb: 0},
		},
	}
}

func TestSaveAndLoadCacheEntry(t *testing.T) {
	store := setupTestStore(t)

	loaded, err := store.LoadCacheEntry()
	if err != nil {
		t.Fatalf("LoadCacheEntry: %v", err)
	}
	if loaded != nil {
		t.Fatalf("LoadCacheEntry = %+v, want nil before first save", loaded)
	}

	fetchedAt := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	entry := models.CacheEntry{
		Snapshot:  testSnapshot(fetchedAt),
		ExpiresAt: fetchedAt.Add(time.Hour),
	}
	if err := store.SaveCacheEntry(entry); err != nil {
		t.Fatalf("SaveCacheEntry: %v", err)
	}

	loaded, err = store.LoadCacheEntry()
	if err != nil {
		t.Fatalf("LoadCacheEntry: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadCacheEntry returned nil after save")
	}
	if !loaded.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, entry.ExpiresAt)
	}
	if len(loaded.Snapshot.Hourly) != 3 {
		t.Fatalf("len(Hourly) = %d, want 3", len(loaded.Snapshot.Hourly))
	}
	if loaded.Snapshot.Hourly[2].Temp != 65 {
		t.Errorf("Hourly[2].Temp = %v, want 65", loaded.Snapshot.Hourly[2].Temp)
	}
}

func TestSaveCacheEntry_ReplacesPrevious(t *testing.T) {
	store := setupTestStore(t)

	first := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)

	for _, fetchedAt := range []time.Time{first, second} {
		entry := models.CacheEntry{Snapshot: testSnapshot(fetchedAt), ExpiresAt: fetchedAt.Add(time.Hour)}
		if err := store.SaveCacheEntry(entry); err != nil {
			t.Fatalf("SaveCacheEntry: %v", err)
		}
	}

	loaded, err := store.LoadCacheEntry()
	if err != nil {
		t.Fatalf("LoadCacheEntry: %v", err)
	}
	if !loaded.Snapshot.FetchedAt.Equal(second) {
		t.Errorf("FetchedAt = %v, want %v", loaded.Snapshot.FetchedAt, second)
	}
}

func TestTryRecord_Dedupes(t *testing.T) {
	store := setupTestStore(t)

	inserted, err := store.TryRecord(models.WindowSleep, "2025-06-01", "use heat tonight")
	if err != nil {
		t.Fatalf("TryRecord: %v", err)
	}
	if !inserted {
		t.Fatal("first TryRecord = false, want true")
	}

	inserted, err = store.TryRecord(models.WindowSleep, "2025-06-01", "different content")
	if err != nil {
		t.Fatalf("TryRecord: %v", err)
	}
	if inserted {
		t.Fatal("second TryRecord = true, want false")
	}

	// Same day, other window is an independent key.
	inserted, err = store.TryRecord(models.WindowDay, "2025-06-01", "open the windows")
	if err != nil {
		t.Fatalf("TryRecord: %v", err)
	}
	if !inserted {
		t.Fatal("TryRecord for other window = false, want true")
	}

	rec, err := store.GetNotification(models.WindowSleep, "2025-06-01")
	if err != nil {
		t.Fatalf("GetNotification: %v", err)
	}
	if rec == nil {
		t.Fatal("GetNotification returned nil")
	}
	if rec.Content != "use heat tonight" {
		t.Errorf("Content = %q, want the first insert to win", rec.Content)
	}
}

func TestTryRecord_Concurrent(t *testing.T) {
	store := setupTestStore(t)

	const callers = 10
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.TryRecord(models.WindowDay, "2025-06-02", "run the ac")
			if err != nil {
				t.Errorf("TryRecord: %v", err)
				return
			}
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for inserted := range results {
		if inserted {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
}

func TestRecentNotifications(t *testing.T) {
	store := setupTestStore(t)

	days := []string{"2025-06-01", "2025-06-02", "2025-06-03"}
	for _, day := range days {
		if _, err := store.TryRecord(models.WindowSleep, day, "content "+day); err != nil {
			t.Fatalf("TryRecord: %v", err)
		}
	}

	records, err := store.RecentNotifications(2)
	if err != nil {
		t.Fatalf("RecentNotifications: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
}
