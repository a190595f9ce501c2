// Package session assembles an orchestrator from configuration and runs its
// background work: the directory watcher, the debounced refresh loop and the
// optional metrics endpoint.
package session

import (
	"context"
	stderrors "errors"
	"net/http"
	"path/filepath"
	"time"

	"modeltool/internal/config"
	"modeltool/internal/engine"
	"modeltool/internal/engine/wavefront"
	"modeltool/internal/errors"
	"modeltool/internal/fileio"
	"modeltool/internal/log"
	"modeltool/internal/metrics"
	"modeltool/internal/orchestrator"
	"modeltool/internal/watch"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Session owns every collaborator of one orchestrator.
type Session struct {
	cfg     *config.Config
	adapter *engine.Adapter
	watcher *watch.Watcher
	orch    *orchestrator.Orchestrator
	server  *http.Server
}

// Option configures a Session.
type Option func(*options)

type options struct {
	native      engine.Native
	noWatch     bool
	metricsAddr *string
}

// WithEngine replaces the reference Wavefront engine.
func WithEngine(n engine.Native) Option {
	return func(o *options) { o.native = n }
}

// WithoutWatcher disables directory watching regardless of configuration.
func WithoutWatcher() Option {
	return func(o *options) { o.noWatch = true }
}

// WithMetricsAddr overrides metrics.addr. An empty address disables the
// endpoint.
func WithMetricsAddr(addr string) Option {
	return func(o *options) { o.metricsAddr = &addr }
}

// New builds a session from cfg. Nothing runs until Run.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.New()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, errors.NewConfigError("invalid import extensions", "import.extensions", errors.InvalidConfig, err)
	}

	native := o.native
	if native == nil {
		native = wavefront.New(cfg.Engine.FileVersion)
	}
	s := &Session{cfg: cfg, adapter: engine.NewAdapter(native)}

	orchOpts := []orchestrator.Option{
		orchestrator.WithClassifier(classifier),
		orchestrator.WithChunkSize(cfg.IO.ChunkSize),
		orchestrator.WithDebounce(cfg.Debounce()),
		orchestrator.WithFileVersion(cfg.Engine.FileVersion),
		orchestrator.WithVerbosity(cfg.Verbosity()),
	}
	if cfg.Watch.Enabled && !o.noWatch {
		w, err := watch.New()
		if err != nil {
			return nil, errors.Wrap(err, "cannot create directory watcher")
		}
		s.watcher = w
		orchOpts = append(orchOpts, orchestrator.WithWatcher(w))
	}
	s.orch = orchestrator.New(s.adapter, orchOpts...)

	addr := cfg.Metrics.Addr
	if o.metricsAddr != nil {
		addr = *o.metricsAddr
	}
	if addr != "" {
		s.server = metrics.NewServer(addr)
	}

	log.LogWithFields(
		log.F("chunk_size", cfg.IO.ChunkSize),
		log.F("watch", s.watcher != nil),
		log.F("metrics", addr),
	).Debug("Session created")
	return s, nil
}

// Orchestrator returns the session's orchestrator.
func (s *Session) Orchestrator() *orchestrator.Orchestrator { return s.orch }

// Watching reports whether directory changes refresh the listing.
func (s *Session) Watching() bool { return s.watcher != nil }

// MetricsAddr returns the metrics listen address, or "" when disabled.
func (s *Session) MetricsAddr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// StartDir resolves the directory a session opens first: dir when given,
// otherwise directories.default.
func (s *Session) StartDir(dir string) (string, error) {
	if dir == "" {
		dir = s.cfg.Directories.Default
	}
	if dir == "" {
		dir = "."
	}
	if err := fileio.ValidatePath(dir); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewFileError("cannot resolve directory", dir, errors.InvalidPath, err)
	}
	return abs, nil
}

// Run starts the watcher, the refresh loop and the metrics endpoint and
// blocks until ctx is cancelled or one of them fails.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			return errors.Wrap(err, "cannot start directory watcher")
		}
		g.Go(func() error {
			<-ctx.Done()
			s.watcher.Stop()
			return nil
		})
	}

	g.Go(func() error {
		return s.orch.Run(ctx)
	})

	if s.server != nil {
		g.Go(func() error {
			log.LogWithFields(log.F("addr", s.server.Addr)).Info("Serving metrics")
			if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "metrics endpoint %s", s.server.Addr)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil {
		log.LogWithError(err).Error("Session stopped")
	} else {
		log.Debug("Session stopped")
	}
	return err
}

// Close cancels any operation in flight and releases every engine handle.
// It is safe to call after Run returns.
func (s *Session) Close() {
	s.orch.Close()
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.adapter.Close()
}
