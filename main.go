package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pressalign/projector/internal/api"
	"github.com/pressalign/projector/internal/assets"
	"github.com/pressalign/projector/internal/config"
	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/fsutil"
	"github.com/pressalign/projector/internal/monitor"
	"github.com/pressalign/projector/internal/render"
	"github.com/pressalign/projector/internal/timeutil"
	"github.com/pressalign/projector/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode (serve static/ from disk)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	configPath  = flag.String("config", "", "Path to JSON config file")
)

// uploadMaxAge is how long an uploaded image survives before the periodic
// sweep removes it.
const uploadMaxAge = 30 * 24 * time.Hour

const uploadSweepInterval = 6 * time.Hour

func main() {
	flag.Parse()
	log.Printf("press projector %s (%s)", version.Version, version.GitSHA)

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	addr := cfg.GetListenAddr()
	if *listen != "" {
		addr = *listen
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	store, err := assets.NewStore(fsutil.OSFileSystem{}, cfg.GetUploadsDir())
	if err != nil {
		log.Fatalf("failed to prepare uploads directory: %v", err)
	}

	engine := render.NewEngine(render.EngineConfig{
		ProjectorWidth:   cfg.GetProjectorWidth(),
		ProjectorHeight:  cfg.GetProjectorHeight(),
		TargetPxPerMm:    cfg.GetTargetPxPerMm(),
		BoundaryMarginMm: cfg.GetBoundaryMarginMm(),
		Format:           render.Format(cfg.GetFrameFormat()),
		Source:           store,
	})

	mon := monitor.New(engine.Calibration)

	srv := api.NewServer(database, engine, store, cfg, mon)
	if err := srv.RestoreCalibration(); err != nil {
		log.Fatalf("failed to restore calibration: %v", err)
	}
	if err := srv.RestoreLastScene(); err != nil {
		log.Fatalf("failed to restore last scene: %v", err)
	}

	var dump *render.Dump
	if cfg.GetDebugRenderDump() {
		dump, err = render.NewDump(fsutil.OSFileSystem{}, cfg.GetRendersDir())
		if err != nil {
			log.Fatalf("failed to prepare renders directory: %v", err)
		}
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}

	// render loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("render loop stopped: %v", err)
		}
		log.Print("render loop terminated")
	}()

	// periodic re-render keeps late-joining projector clients fed even when
	// the layout is static
	if interval := cfg.GetBroadcastInterval(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.RunPeriodic(ctx, clock, interval)
		}()
	}

	// observe every completed run for the debug pages and the optional
	// on-disk dump
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, frames := engine.Subscribe()
		defer engine.Unsubscribe(id)
		for {
			select {
			case res := <-frames:
				mon.Observe(res)
				if dump != nil {
					dump.Observe(res)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// stale upload sweeper
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := clock.NewTicker(uploadSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if n, err := store.CleanupOlderThan(clock, uploadMaxAge); err != nil {
					log.Printf("upload sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("upload sweep removed %d stale files", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := srv.ServeMux()

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			sub, err := fs.Sub(staticFiles, "static")
			if err != nil {
				log.Fatalf("failed to mount static files: %v", err)
			}
			staticHandler = http.FileServer(http.FS(sub))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    addr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	// first frame for anyone already connected
	engine.Submit()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
