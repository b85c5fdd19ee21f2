package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"sandwach/internal/advisor"
	"sandwach/internal/api"
	"sandwach/internal/cache"
	"sandwach/internal/config"
	"sandwach/internal/decision"
	"sandwach/internal/ingest"
	"sandwach/internal/models"
	"sandwach/internal/notify"
	"sandwach/internal/scheduler"
	"sandwach/internal/store"
)

func main() {
	dbPath := flag.String("db", "", "path to SQLite database (overrides DB_PATH)")
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	once := flag.String("once", "", "run a single analysis window (sleep|day) and exit")
	noSched := flag.Bool("no-sched", false, "disable scheduled analysis (server only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *port != "" {
		cfg.Port = *port
	}
	if cfg.APIKey == "" {
		log.Fatal("ACCUWEATHER_API_KEY environment variable required")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create data directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	provider := ingest.NewClient(cfg.APIKey, cfg.LocationKey)
	fc := cache.New(provider, st, cfg.CacheTTL)
	if err := fc.Restore(); err != nil {
		log.Printf("Warning: could not restore cached forecast: %v", err)
	}

	engine := decision.New(
		decision.Span{Start: cfg.SleepStartHour, End: cfg.SleepEndHour},
		decision.Span{Start: cfg.DayStartHour, End: cfg.DayEndHour},
		loc,
	)

	var channels []notify.Channel
	if cfg.NtfyEnabled {
		channels = append(channels, notify.NewNtfyChannel(cfg.NtfyServer, cfg.NtfyTopic, cfg.NtfyToken))
	}
	if cfg.DesktopEnabled {
		channels = append(channels, notify.NewDesktopChannel())
	}
	dispatcher := notify.NewDispatcher(channels...)

	adv := advisor.New(fc, engine, st, dispatcher, cfg.Thresholds, loc)

	if *once != "" {
		window, err := models.ParseWindow(*once)
		if err != nil {
			log.Fatalf("invalid -once value: %v", err)
		}
		log.Printf("running single %s analysis", window)
		if err := adv.RunWindow(window); err != nil {
			log.Fatalf("analysis: %v", err)
		}
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*noSched {
		sched := scheduler.New(adv, loc, cfg.EveningHour, cfg.MorningHour)
		if err := sched.Start(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer sched.Stop()
	} else {
		log.Println("scheduled analysis disabled (--no-sched)")
	}

	server := api.NewServer(adv, fc, st, cfg.Port, loc)
	log.Printf("starting server on :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
