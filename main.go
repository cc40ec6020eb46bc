package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"campuscal/adapter"
	"campuscal/adapter/nju"
	"campuscal/config"
	"campuscal/schedule"
	"campuscal/site"
	"campuscal/store"
)

// registrations lists every supported school in the order the frontend
// shows them.
var registrations = []adapter.Registration{
	{Name: "南京大学本科生", New: nju.NewUndergrad},
	{Name: "南京大学研究生", New: nju.NewGraduate},
}

const sessionMaxIdle = 30 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error opening credential store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	registry, err := adapter.NewRegistry(ctx, st, registrations)
	if err != nil {
		log.Fatalf("Error building school registry: %v", err)
	}
	log.Printf("Registered schools: %v", registry.Names())

	holidays, err := schedule.NewHolidayCalendar(cfg.HolidayFeedURL, nil)
	if err != nil {
		log.Fatalf("Error creating holiday calendar: %v", err)
	}
	// The feed being down must not keep the service from starting; the
	// cron refresh below will catch up.
	if err := holidays.Refresh(ctx, time.Now()); err != nil {
		log.Printf("Initial holiday fetch failed: %v", err)
	}

	server := site.New(cfg, registry, st, holidays)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.HolidayRefreshCron, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := holidays.Refresh(refreshCtx, time.Now()); err != nil {
			log.Printf("Holiday refresh failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Error scheduling holiday refresh: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 10m", func() {
		if pruned := server.Sessions().PruneStale(sessionMaxIdle); pruned > 0 {
			log.Printf("Pruned %d idle login sessions", pruned)
		}
	}); err != nil {
		log.Fatalf("Error scheduling session pruning: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("Listening on %s", cfg.Listen)
	if err := server.Router().Run(cfg.Listen); err != nil {
		log.Fatalf("HTTP server stopped: %v", err)
	}
}
