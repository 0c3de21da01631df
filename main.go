package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"keeper/internal/api"
	"keeper/internal/config"
	"keeper/internal/engine"
	"keeper/internal/events"
	"keeper/internal/gitops"
	"keeper/internal/logging"
	"keeper/internal/middleware"
	"keeper/internal/safe"
	"keeper/internal/storage"
	"keeper/internal/tracker"
	shared "keeper/shared/types"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const timerInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize BadgerDB
	db, err := badger.Open(badger.DefaultOptions(cfg.Database.Path))
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	// Snapshot store for changed-file contents
	snapshots, err := safe.New(db, safe.Options{
		Root: filepath.Join(cfg.Database.Path, "snapshots"),
	})
	if err != nil {
		logger.Fatal("failed to initialize snapshot store", zap.Error(err))
	}

	// Pending-change tracker (restores state from a previous run)
	trk, err := tracker.New(db, logger.Logger)
	if err != nil {
		logger.Fatal("failed to initialize tracker", zap.Error(err))
	}

	// Engine collaborators
	cfgStore := config.NewStore(cfg.AutoCommit)
	bus := events.NewBus()
	queue := events.NewQueue(64, logger.Logger)
	defer queue.Close()

	projectStore := storage.NewProjectStore(db)
	commitStore := storage.NewCommitStore(db)

	eng := engine.New(engine.Options{
		Config:    cfgStore,
		Tracker:   trk,
		Git:       gitops.NewCLI(logger.Logger),
		Bus:       bus,
		Queue:     queue,
		Commits:   commitStore,
		Snapshots: snapshots,
		Logger:    logger.Logger,
	})
	defer eng.Stop()

	bus.Subscribe(func(e events.Event) {
		logger.Info("event",
			zap.String("type", string(e.Type)),
			zap.String("project", e.ProjectID),
			zap.String("commit", e.CommitHash),
			zap.String("branch", e.BranchName))
	})

	notify := func(cc shared.CommitContext) {
		if _, err := eng.OnTrigger(context.Background(), cc); err != nil {
			logger.Error("file change trigger failed",
				zap.String("project", cc.ProjectID), zap.Error(err))
		}
	}
	manager := tracker.NewManager(trk, snapshots, notify, logger.Logger)
	defer manager.Close()

	// Resume watching projects registered before the restart
	projects, err := projectStore.List()
	if err != nil {
		logger.Fatal("failed to list projects", zap.Error(err))
	}
	for _, p := range projects {
		if err := manager.Watch(p); err != nil {
			logger.Warn("failed to resume watching project",
				zap.String("project", p.ID), zap.Error(err))
		}
	}

	// Time-based trigger loop
	go runTimer(eng, projectStore, logger.Logger)

	// Set up router
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheck)

	handler := api.NewHandler(eng, trk, cfgStore, projectStore, commitStore, manager, logger.Logger)
	handler.Register(mux)

	// Apply middleware
	chained := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, chained); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// runTimer fires a Timer trigger for every registered project on a fixed
// interval. The engine's decision gate drops them unless time-based commits
// are enabled.
func runTimer(eng *engine.Engine, projects *storage.ProjectStore, logger *zap.Logger) {
	ticker := time.NewTicker(timerInterval)
	defer ticker.Stop()

	for range ticker.C {
		list, err := projects.List()
		if err != nil {
			logger.Warn("timer trigger: listing projects", zap.Error(err))
			continue
		}
		for _, p := range list {
			cc := shared.CommitContext{
				ProjectID:   p.ID,
				RootPath:    p.RootPath,
				Trigger:     shared.TriggerTimer,
				RequestedAt: time.Now(),
			}
			if _, err := eng.OnTrigger(context.Background(), cc); err != nil {
				logger.Warn("timer trigger failed",
					zap.String("project", p.ID), zap.Error(err))
			}
		}
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}
