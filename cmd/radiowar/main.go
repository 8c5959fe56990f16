// Command radiowar runs a territory-control session: stations broadcast
// faction frequencies, factions ally through treaties, and the last bloc
// holding the air wins the round.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/radiowar/internal/api"
	"github.com/talgya/radiowar/internal/config"
	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/locale"
	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/persistence"
	"github.com/talgya/radiowar/internal/social"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("radiowar starting", "locale", cfg.Locale, "tick_interval", cfg.TickInterval)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Map ───────────────────────────────────────────────────────────
	setup := config.DemoMapSetup()
	if cfg.MapPath != "" {
		setup, err = config.LoadMapSetup(cfg.MapPath)
		if err != nil {
			slog.Error("failed to load map", "path", cfg.MapPath, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("map ready",
		"factions", len(setup.Factions),
		"stations", len(setup.Stations),
		"documents", len(setup.Documents),
	)

	catalog, err := locale.Load(cfg.Locale)
	if err != nil {
		slog.Error("failed to load locale", "locale", cfg.Locale, "error", err)
		os.Exit(1)
	}

	// ── Session ───────────────────────────────────────────────────────
	directory := social.NewDirectory()
	hub := api.NewHub(directory, cfg.RelayKey, cfg.CORSOrigins)
	keeper := newRoundKeeper(db, setup, cfg.RestartDelay)

	session := engine.NewSession(engine.Options{
		Notifier:  notify.Multi{notify.Log{}, hub, keeper.notifier()},
		Directory: directory,
		Catalog:   catalog,
		OnReset:   keeper.onReset,
	})
	keeper.session = session
	keeper.start()

	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.OnTick = func(uint64) { session.Tick() }
	eng.OnMinute = func(tick uint64) {
		keeper.flush()
		if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
			slog.Error("save meta failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("RADIOWAR_ADMIN_KEY not set, admin POST endpoints disabled")
	}
	apiServer := &api.Server{
		Session:     session,
		Eng:         eng,
		DB:          db,
		Hub:         hub,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		RelayKey:    cfg.RelayKey,
		CORSOrigins: cfg.CORSOrigins,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go keeper.archive(ctx)
	go keeper.run(ctx)

	fmt.Printf("\nRadio war is on the air: %d factions, %d stations.\n", len(setup.Factions), len(session.Stations()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run(ctx)

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	keeper.flush()

	fmt.Println("Stopped. Round history saved.")
}
