package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tubewatch/internal/config"
	"tubewatch/internal/events"
	"tubewatch/internal/jobs"
	"tubewatch/internal/llm"
	"tubewatch/internal/logging"
	"tubewatch/internal/media"
	"tubewatch/internal/notifications"
	"tubewatch/internal/server"
	"tubewatch/internal/store"
	"tubewatch/internal/youtube"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	hub    *events.Hub
	orch   *jobs.Orchestrator
	poller *youtube.Poller
	server *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon and its dependency graph. When no LLM API key is
// configured the daemon runs without summarization; summarize requests
// then fail as ordinary job errors.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Channels listed in the config are tracked alongside ones added via
	// the API; AddChannel is idempotent across restarts.
	for _, name := range cfg.Channels.Tracked {
		if err := st.AddChannel(context.Background(), name); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("track configured channel %q: %w", name, err)
		}
	}

	extractor := media.New(cfg.VideosDir(),
		media.WithYtdlpBinary(cfg.YtdlpBinary()),
		media.WithFFmpegBinary(cfg.FFmpegBinary()))

	var summarizer jobs.Summarizer
	if cfg.LLM.APIKey != "" {
		client, err := llm.New(cfg.LLM)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("configure llm backend: %w", err)
		}
		summarizer = client
	} else {
		logger.Info("no llm api key configured, summarization disabled")
	}

	notifier := notifications.NewService(cfg)
	runner := jobs.NewRunner(st, extractor, summarizer, cfg.VideosDir(), logger)

	var orch *jobs.Orchestrator
	hub := events.NewHub(logger, func() events.Snapshot { return orch.Snapshot() })
	orch = jobs.NewOrchestrator(context.Background(), runner, hub, notifier, logger)

	poller := youtube.NewPoller(st, youtube.NewClient(), hub, notifier, logger,
		time.Duration(cfg.Channels.PollInterval)*time.Second)

	srv, err := server.New(cfg, st, orch, hub, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tubewatchd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		hub:      hub,
		orch:     orch,
		poller:   poller,
		server:   srv,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the poller and HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tubewatch daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.poller.Start(runCtx)
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("tubewatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()))
	return nil
}

// Stop halts background services, waits for in-flight jobs, and releases
// the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.poller.Stop()
	d.server.Stop()
	d.orch.Wait()
	d.hub.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tubewatch daemon stopped")
}

// Close stops the daemon and releases its resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the HTTP listen address once started.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}
