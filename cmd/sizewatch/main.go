// Command sizewatch watches configured pages for size changes — viewport
// and selector-matched elements — and emits notifications to sinks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sizewatch"
	"github.com/hazyhaar/sizewatch/cdp"
)

func main() {
	cfgPath := flag.String("config", "sizewatch.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger := slog.Default()

	cfg, err := sizewatch.LoadConfigFile(*cfgPath)
	if err != nil {
		logger.Error("sizewatch: load config", "path", *cfgPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser := cdp.NewBrowser(cdp.BrowserConfig{
		Remote:  cfg.Browser.Remote,
		Headful: cfg.Browser.Headful,
		Logger:  logger,
	})
	if err := browser.Start(ctx); err != nil {
		logger.Error("sizewatch: start browser", "error", err)
		os.Exit(1)
	}
	defer browser.Close()

	watchers := make(map[string]*sizewatch.Watcher)
	for _, page := range cfg.Pages {
		w, err := watchPage(ctx, browser, page, cfg.Sinks, logger)
		if err != nil {
			logger.Error("sizewatch: watch page failed", "url", page.URL, "error", err)
			continue
		}
		watchers[page.ID] = w
	}
	if len(watchers) == 0 {
		logger.Error("sizewatch: nothing to watch")
		os.Exit(1)
	}
	defer func() {
		for _, w := range watchers {
			w.Close()
		}
	}()

	if cfg.DebugAddr != "" {
		go serveDebug(ctx, cfg.DebugAddr, watchers, logger)
	}

	logger.Info("sizewatch: running", "pages", len(watchers))
	<-ctx.Done()
	logger.Info("sizewatch: shutting down")
}

// watchPage opens one page and wires a watcher over its CDP detectors.
func watchPage(ctx context.Context, browser *cdp.Browser, page sizewatch.PageConfig,
	sinkCfgs []sizewatch.SinkConfig, logger *slog.Logger) (*sizewatch.Watcher, error) {

	p, err := browser.OpenPage(ctx, page.URL)
	if err != nil {
		return nil, err
	}

	det, err := cdp.NewDetectors(ctx, p, logger)
	if err != nil {
		return nil, err
	}

	sinks, err := buildSinks(sinkCfgs)
	if err != nil {
		return nil, err
	}

	w, err := sizewatch.New(sizewatch.Config{
		Geometry:  det.Geometry(),
		Mutations: det.Mutations(),
		Viewport:  det.Viewport(),
		Throttle:  page.Throttle(),
		Sinks:     sinks,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	if page.Viewport {
		if _, err := w.Viewport(); err != nil {
			w.Close()
			return nil, err
		}
	}
	for _, sel := range page.Selectors {
		el, err := det.ElementBySelector(sel)
		if err != nil {
			logger.Warn("sizewatch: selector not found", "url", page.URL, "selector", sel, "error", err)
			continue
		}
		if _, err := w.Element(el); err != nil {
			logger.Warn("sizewatch: observe element failed", "selector", sel, "error", err)
		}
	}

	logger.Info("sizewatch: watching page",
		"id", page.ID, "url", page.URL,
		"selectors", len(page.Selectors), "viewport", page.Viewport)
	return w, nil
}

func buildSinks(cfgs []sizewatch.SinkConfig) ([]sizewatch.Sink, error) {
	var sinks []sizewatch.Sink
	for _, c := range cfgs {
		switch c.Type {
		case "stdout":
			sinks = append(sinks, sizewatch.NewStdoutSink(os.Stdout))
		case "sqlite":
			s, err := sizewatch.NewSQLiteSink("sqlite", c.Path)
			if err != nil {
				return nil, fmt.Errorf("sqlite sink %s: %w", c.Path, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown sink type %q", c.Type)
		}
	}
	return sinks, nil
}

// serveDebug exposes /healthz and /stats for operators.
func serveDebug(ctx context.Context, addr string, watchers map[string]*sizewatch.Watcher, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := make(map[string]sizewatch.Stats, len(watchers))
		for id, watcher := range watchers {
			stats[id] = watcher.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	logger.Info("sizewatch: debug endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("sizewatch: debug endpoint failed", "error", err)
	}
}
