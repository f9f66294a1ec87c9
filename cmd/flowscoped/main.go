// flowscoped is the telemetry alignment and sampling daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/flowscope/flowscope/config"
	"github.com/flowscope/flowscope/internal/fetch"
	"github.com/flowscope/flowscope/internal/loader"
	"github.com/flowscope/flowscope/internal/logging"
	"github.com/flowscope/flowscope/internal/manifest"
	"github.com/flowscope/flowscope/internal/observability"
	"github.com/flowscope/flowscope/internal/repl"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/server"
	"github.com/flowscope/flowscope/internal/topology"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dataDir := flag.String("data", "", "local data directory (overrides config)")
	baseURL := flag.String("url", "", "data server base URL (overrides config)")
	interactive := flag.Bool("repl", false, "run the interactive inspector instead of the HTTP API")
	selection := flag.String("select", "", "initial selection to load, as scenario/protocol/load")
	jsonLog := flag.Bool("json-log", false, "force JSON log output")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
		cfg.Data.BaseURL = ""
	}
	if *baseURL != "" {
		cfg.Data.BaseURL = *baseURL
		cfg.Data.Dir = ""
	}
	if *jsonLog {
		cfg.Log.JSON = true
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logLevel(cfg.Log.Level), cfg.Log.JSON)
	log := logging.Component("main")
	log.Info("flowscoped starting", "version", Version, "config", *cfgPath)

	// =========================================================================
	// Data Source
	// =========================================================================

	var fetcher fetch.Fetcher
	if cfg.Data.BaseURL != "" {
		fetcher, err = fetch.NewHTTP(cfg.Data.BaseURL, cfg.Fetch)
		if err != nil {
			log.Error("create fetcher", "error", err)
			os.Exit(1)
		}
		log.Info("data source", "base_url", cfg.Data.BaseURL)
	} else {
		fetcher = fetch.NewDir(cfg.Data.Dir, cfg.Fetch)
		log.Info("data source", "dir", cfg.Data.Dir)
	}

	// =========================================================================
	// Layout and Manifest
	// =========================================================================

	layout, err := topology.LoadFile(cfg.Data.Topology)
	if err != nil {
		log.Error("load topology", "path", cfg.Data.Topology, "error", err)
		os.Exit(1)
	}
	log.Info("topology loaded",
		"path", cfg.Data.Topology,
		"nodes", len(layout.Nodes),
		"links", len(layout.Links))

	mf, err := manifest.LoadFile(cfg.Data.Manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Without a manifest no host scalar series are fetched.
			log.Warn("no manifest found; host series disabled", "path", cfg.Data.Manifest)
			mf = manifest.Empty()
		} else {
			log.Error("load manifest", "path", cfg.Data.Manifest, "error", err)
			os.Exit(1)
		}
	}

	// =========================================================================
	// Controller
	// =========================================================================

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		log.Error("register metrics", "error", err)
		os.Exit(1)
	}

	ctrl := loader.NewController(layout, fetcher, mf, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *selection != "" {
		sel, err := parseSelection(*selection)
		if err != nil {
			log.Error("bad -select flag", "error", err)
			os.Exit(1)
		}
		view, err := ctrl.Select(ctx, sel)
		if err != nil {
			log.Error("initial load failed", "selection", sel.String(), "error", err)
			os.Exit(1)
		}
		log.Info("initial selection loaded",
			"selection", view.Selection.String(),
			"grid_len", view.GridLen(),
			"duration", view.Duration())
	}

	// =========================================================================
	// Interactive Inspector
	// =========================================================================

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			log.Error("-repl requires an interactive terminal")
			os.Exit(1)
		}
		repl.New(ctx, ctrl, layout, cfg.Stats.Accuracy).Run()
		return
	}

	// =========================================================================
	// HTTP API and Graceful Shutdown
	// =========================================================================

	srv := server.New(cfg.Server, ctrl, layout, metrics, cfg.Stats.Accuracy)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", "error", err)
		}
		cancel()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseSelection(s string) (series.Selection, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return series.Selection{}, fmt.Errorf("selection %q must be scenario/protocol/load", s)
	}
	return series.Selection{Scenario: parts[0], Protocol: parts[1], Load: parts[2]}, nil
}
