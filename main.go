package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"partsync/config"
	"partsync/database"
	"partsync/handlers"
	"partsync/middleware"
	"partsync/models"
	"partsync/repository"
	"partsync/scheduler"
	"partsync/scraper"
)

func main() {
	batchPath := flag.String("batch", "", "process a CSV export once and exit")
	outDir := flag.String("out", "", "output directory for -batch (default OUTPUT_DIR)")
	sku := flag.String("sku", "", "look up one stock identifier with a visible browser and exit")
	static := flag.Bool("static", false, "use the static HTTP driver instead of a browser")
	flag.Parse()

	config.SetupEnvironment()
	cfg := config.Load()

	catalogs, err := config.LoadCatalogs(cfg.CatalogsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalogs")
	}

	switch {
	case *sku != "":
		os.Exit(runSKU(cfg, catalogs, *sku))
	case *batchPath != "":
		if *outDir != "" {
			cfg.OutputDir = *outDir
		}
		os.Exit(runBatch(cfg, catalogs, *batchPath, *static))
	default:
		runServer(cfg, catalogs)
	}
}

func retryConfig(cfg *config.AppConfig) scraper.RetryConfig {
	return scraper.RetryConfig{
		MaxRetries: max(cfg.Browser.LaunchAttempts-1, 0),
		BaseDelay:  cfg.Browser.LaunchBackoff,
		MaxDelay:   8 * cfg.Browser.LaunchBackoff,
	}
}

func staticFactory(cfg *config.AppConfig) scraper.SessionFactory {
	return scraper.StaticFactory(nil, cfg.Browser.UserAgent, cfg.Browser.PageLoadTimeout)
}

// runSKU looks up a single identifier in a visible browser so the
// catalog pages can be watched
func runSKU(cfg *config.AppConfig, catalogs config.Catalogs, identifier string) int {
	cfg.Browser.Headless = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := scraper.StartSession(ctx, retryConfig(cfg), scraper.RodFactory(cfg.Browser))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start browser")
		return 1
	}
	defer session.Close()

	lookup, err := scraper.NewLookup(session.Page(), catalogs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create lookup")
		return 1
	}

	result := lookup.Lookup(ctx, "SKU "+identifier)
	if !result.Found() {
		fmt.Printf("%s: no price found (%s)\n", identifier, result.Cause())
		return 1
	}
	fmt.Printf("%s: £%s from %s\n  %s\n", identifier, result.Price.Decimal.StringFixed(2), result.Source, result.URL)
	return 0
}

// runBatch processes one export and writes the import file and report
func runBatch(cfg *config.AppConfig, catalogs config.Catalogs, inputPath string, static bool) int {
	driver := scheduler.BrowserDriver(scraper.RodFactory(cfg.Browser), catalogs)
	if static {
		driver = scheduler.StaticDriver(staticFactory(cfg), catalogs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := scheduler.NewTaskManager(scheduler.Options{
		OutputDir: cfg.OutputDir,
		ItemDelay: cfg.ItemDelay,
		Retry:     retryConfig(cfg),
	}, nil, nil)

	task, err := manager.Run(ctx, inputPath, driver)
	if err != nil {
		log.Error().Err(err).Str("input", inputPath).Msg("Failed to start batch")
		return 1
	}

	snapshot := task.Snapshot()
	switch snapshot.Status {
	case models.TaskStatusCompleted:
		fmt.Printf("Updated %d, unchanged %d, errors %d\n", snapshot.UpdatesCount, snapshot.UnchangedCount, snapshot.ErrorsCount)
		fmt.Printf("Import file: %s\nReport: %s\n", snapshot.OutputFile, snapshot.ReportFile)
		return 0
	case models.TaskStatusCancelled:
		fmt.Println("Batch cancelled, no files written")
		return 130
	default:
		fmt.Printf("Batch failed: %s\n", snapshot.Error)
		return 1
	}
}

func runServer(cfg *config.AppConfig, catalogs config.Catalogs) {
	// Run ledger: SQL when configured, memory otherwise
	var runs interface {
		scheduler.RunStore
		handlers.RunLister
	}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()

		if err := db.CreateTables(); err != nil {
			log.Fatal().Err(err).Msg("Failed to create tables")
		}
		runs = repository.NewRunRepository(db)
	} else {
		log.Warn().Msg("DATABASE_URL not set, keeping the run ledger in memory")
		runs = repository.NewMemoryRunStore()
	}

	hub := handlers.NewHub(cfg.AllowedOrigins)
	defer hub.Close()

	browser := scheduler.BrowserDriver(scraper.RodFactory(cfg.Browser), catalogs)
	manager := scheduler.NewTaskManager(scheduler.Options{
		OutputDir: cfg.OutputDir,
		ItemDelay: cfg.ItemDelay,
		Retry:     retryConfig(cfg),
	}, hub, runs)
	defer manager.Stop()

	maintenance := scheduler.NewMaintenance(manager, browser, scheduler.MaintenanceConfig{
		Dirs:            []string{cfg.UploadDir, cfg.OutputDir},
		Retention:       cfg.Retention,
		CleanupSchedule: cfg.CleanupSchedule,
		ScheduledInput:  cfg.ScheduledInput,
		ScheduledCron:   cfg.ScheduledCron,
	})
	if err := maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance")
	}
	defer maintenance.Stop()

	h := handlers.NewHandlers(manager, runs, hub, handlers.Options{
		UploadDir:     cfg.UploadDir,
		OutputDir:     cfg.OutputDir,
		MaxUploadSize: cfg.MaxUploadSize,
		Browser:       browser,
		Static:        scheduler.StaticDriver(staticFactory(cfg), catalogs),
	})

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	h.Register(r, middleware.RateLimit(cfg.UploadLimit))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
