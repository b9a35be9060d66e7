// Package preview runs the local development server: it serves the built
// site, watches the content dir for changes, and rebuilds with debouncing.
// An optional periodic rebuild picks up future-dated posts as they go live.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/tverberg/blogsmith/internal/config"
	"github.com/tverberg/blogsmith/internal/logfields"
	"github.com/tverberg/blogsmith/internal/site"
)

const debounceDelay = 300 * time.Millisecond

// buildStatus tracks the last build result for the /healthz endpoint.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	lastBuild    time.Time
	hasGoodBuild bool
}

func (bs *buildStatus) record(report *site.BuildReport, err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	if report != nil {
		bs.lastBuild = report.End
	}
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) snapshot() (lastError error, lastBuild time.Time, hasGoodBuild bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastError, bs.lastBuild, bs.hasGoodBuild
}

// Server is the development server.
type Server struct {
	cfg       *config.Config
	assembler *site.Assembler
	metrics   *Metrics
	status    *buildStatus
}

// NewServer creates a dev server around an assembler.
func NewServer(cfg *config.Config, assembler *site.Assembler) *Server {
	return &Server{
		cfg:       cfg,
		assembler: assembler,
		metrics:   NewMetrics(),
		status:    &buildStatus{},
	}
}

// Run builds the site, starts serving it, and watches for changes until the
// context is canceled.
func (s *Server) Run(ctx context.Context) error {
	contentDir, err := filepath.Abs(s.cfg.Content.Dir)
	if err != nil {
		return fmt.Errorf("resolve content dir: %w", err)
	}
	if st, statErr := os.Stat(contentDir); statErr != nil || !st.IsDir() {
		return fmt.Errorf("content dir not found or not a directory: %s", contentDir)
	}

	s.rebuild(ctx)

	httpServer, err := s.startHTTP(ctx)
	if err != nil {
		return err
	}

	watcher, err := s.setupWatcher(contentDir)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	rebuildReq, trigger := setupDebouncer()
	s.startRebuildWorker(ctx, rebuildReq)

	scheduler, err := s.startScheduler(rebuildReq)
	if err != nil {
		return err
	}

	err = s.watchLoop(ctx, watcher, trigger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(stopErr))
	}
	if scheduler != nil {
		if stopErr := scheduler.Shutdown(); stopErr != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(stopErr))
		}
	}
	// The rebuild channel stays open: a debounce timer armed just before
	// shutdown may still fire, and the worker exits via ctx instead.
	return err
}

func (s *Server) rebuild(ctx context.Context) {
	report, err := s.assembler.Build(ctx)
	s.status.record(report, err)
	s.metrics.RecordBuild(report)
	if err != nil {
		slog.Warn("Rebuild failed, previous output still served", logfields.Error(err))
	}
}

func (s *Server) startHTTP(ctx context.Context) (*http.Server, error) {
	outputDir, err := filepath.Abs(s.cfg.Output.Directory)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/", http.FileServer(http.Dir(outputDir)))

	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("Dev server stopped unexpectedly", logfields.Error(serveErr))
		}
	}()

	slog.Info("Dev server listening",
		slog.String("addr", srv.Addr), logfields.Path(outputDir))
	return srv, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	lastError, lastBuild, hasGoodBuild := s.status.snapshot()
	payload := map[string]any{
		"ok":         lastError == nil,
		"good_build": hasGoodBuild,
	}
	if !lastBuild.IsZero() {
		payload["last_build"] = lastBuild.Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	if lastError != nil {
		payload["error"] = lastError.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) setupWatcher(contentDir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(watcher, contentDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// setupDebouncer returns the rebuild request channel and a trigger function
// that coalesces bursts of file events into one request.
func setupDebouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker processes rebuild requests one at a time; a request
// arriving mid-build queues exactly one follow-up build.
func (s *Server) startRebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	var mu sync.Mutex
	running := false
	pending := false

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				mu.Lock()
				if running {
					pending = true
					mu.Unlock()
					continue
				}
				running = true
				mu.Unlock()

				slog.Info("Change detected, rebuilding site")
				s.rebuild(ctx)

				mu.Lock()
				running = false
				if pending {
					pending = false
					mu.Unlock()
					select {
					case rebuildReq <- struct{}{}:
					default:
					}
				} else {
					mu.Unlock()
				}
			}
		}
	}()
}

// startScheduler sets up the optional periodic rebuild so future-dated posts
// publish without a file change. Returns nil when no interval is configured.
func (s *Server) startScheduler(rebuildReq chan struct{}) (gocron.Scheduler, error) {
	if s.cfg.Serve.RebuildInterval == "" {
		return nil, nil
	}
	interval, err := time.ParseDuration(s.cfg.Serve.RebuildInterval)
	if err != nil {
		return nil, fmt.Errorf("parse rebuild_interval: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Debug("Scheduled rebuild tick")
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule periodic rebuild: %w", err)
	}
	scheduler.Start()
	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	return scheduler, nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down dev server")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *Server) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if addErr := w.Add(path); addErr != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(addErr))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent filters events that must not trigger rebuilds: hidden
// files and editor temp/swap files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	return base == "Thumbs.db"
}
