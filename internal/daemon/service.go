// Package daemon runs armdeckd: it opens the durable blob store, bootstraps
// the configuration store and serves the dispatcher over the stream link and
// the optional HTTP gateway. A RESTART command tears the runtime down and
// bootstraps it again from the durable store.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/armdeck/internal/config"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/dispatch"
	"github.com/danmuck/armdeck/internal/keypad"
	"github.com/danmuck/armdeck/internal/nvs"
	"github.com/danmuck/armdeck/internal/protocol/document"
	"github.com/danmuck/armdeck/internal/protocol/frame"
	"github.com/danmuck/armdeck/internal/store"
	"github.com/danmuck/armdeck/internal/transport"
	"github.com/rs/zerolog/log"
)

// DefaultRestartGrace is how long a restart waits so the ACK reaches the
// host before connections close.
const DefaultRestartGrace = 250 * time.Millisecond

// Service owns the durable store for the process lifetime; everything above
// it is rebuilt on each restart.
type Service struct {
	cfg      config.Config
	grace    time.Duration
	reporter keypad.Reporter
	restarts atomic.Uint64

	// ready observes each bootstrapped runtime.
	ready func(*Runtime)
}

// Runtime is one bootstrapped generation of the device.
type Runtime struct {
	Store      *store.Store
	Info       *devinfo.Provider
	Keypad     *keypad.Keypad
	Dispatcher *dispatch.Dispatcher
	Stream     *transport.StreamServer
	Gateway    *transport.Gateway
}

type Option func(*Service)

func WithRestartGrace(d time.Duration) Option {
	return func(s *Service) { s.grace = d }
}

// WithReporter replaces the logging HID reporter used by test-button.
func WithReporter(r keypad.Reporter) Option {
	return func(s *Service) { s.reporter = r }
}

func New(cfg config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg, grace: DefaultRestartGrace, reporter: keypad.LogReporter{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restarts reports how many restarts have been served.
func (s *Service) Restarts() uint64 {
	return s.restarts.Load()
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext serves until ctx is done, re-bootstrapping after each restart.
func (s *Service) RunContext(ctx context.Context) error {
	if err := config.Validate(s.cfg); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	blobs, closer, err := openBlobs(s.cfg.NVS)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	for {
		restarted, err := s.runOnce(ctx, blobs)
		if err != nil {
			return err
		}
		if !restarted || ctx.Err() != nil {
			log.Info().Msgf("daemon.Service.run stopped restarts=%d", s.restarts.Load())
			return nil
		}
		n := s.restarts.Add(1)
		log.Info().Msgf("daemon.Service.run restarting generation=%d", n+1)
	}
}

func (s *Service) runOnce(parent context.Context, blobs nvs.BlobStore) (bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var restarted atomic.Bool
	restarter := dispatch.RestartFunc(func() {
		if restarted.Swap(true) {
			return
		}
		time.AfterFunc(s.grace, cancel)
	})

	rt, err := s.bootstrap(blobs, restarter)
	if err != nil {
		return false, err
	}
	if s.ready != nil {
		s.ready(rt)
	}

	errs := make(chan error, 2)
	running := 1
	go func() {
		errs <- rt.Stream.ListenAndServe(ctx, s.cfg.Listen.Stream)
	}()
	if rt.Gateway != nil {
		running++
		go func() {
			errs <- rt.Gateway.Serve(ctx, s.cfg.Listen.HTTP)
		}()
	}

	var firstErr error
	for ; running > 0; running-- {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return false, fmt.Errorf("daemon: serve: %w", firstErr)
	}
	return restarted.Load(), nil
}

// bootstrap builds one runtime generation. A corrupt blob is left on disk
// and the defaults are staged in memory only; the blob is replaced the
// next time a host command saves.
func (s *Service) bootstrap(blobs nvs.BlobStore, restarter dispatch.Restarter) (*Runtime, error) {
	st := store.New(blobs, store.WithLocation(s.cfg.NVS.Namespace, s.cfg.NVS.Key))
	if err := st.Init(); err != nil {
		switch {
		case errors.Is(err, store.ErrCorrupt):
			st.ResetToDefault()
			log.Error().Err(err).Msg("daemon.Service.bootstrap stored configuration unusable; serving staged defaults")
		case errors.Is(err, store.ErrPersist):
			log.Warn().Err(err).Msg("daemon.Service.bootstrap defaults not persisted; serving from memory")
		default:
			return nil, fmt.Errorf("daemon: init store: %w", err)
		}
	}

	info := devinfo.NewProvider(devinfo.WithName(s.cfg.DeviceName))
	pad := keypad.New(st, s.reporter)
	frameCodec := frame.NewCodec()
	documentCodec := document.NewCodec(document.WithDevice(info.Snapshot))

	var linkCodec transport.StreamCodec = frameCodec
	if s.cfg.Codec == config.CodecDocument {
		linkCodec = documentCodec
	}
	d := dispatch.New(linkCodec, st, info, dispatch.WithTester(pad), dispatch.WithRestarter(restarter))

	rt := &Runtime{
		Store:      st,
		Info:       info,
		Keypad:     pad,
		Dispatcher: d,
		Stream:     transport.NewStreamServer(d, linkCodec, s.cfg.ReadTimeout),
	}
	if strings.TrimSpace(s.cfg.Listen.HTTP) != "" {
		rt.Gateway = transport.NewGateway(d, frameCodec, documentCodec, transport.GatewayConfig{
			CORSOrigins: s.cfg.Listen.CORSOrigins,
			DeviceName:  s.cfg.DeviceName,
		})
	}
	log.Info().Msgf(
		"daemon.Service.bootstrap ready device=%q codec=%s initialized=%t stream=%s http=%q",
		info.Name(),
		linkCodec.Name(),
		st.Initialized(),
		s.cfg.Listen.Stream,
		s.cfg.Listen.HTTP,
	)
	return rt, nil
}

func openBlobs(cfg config.NVSConfig) (nvs.BlobStore, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn().Msg("daemon.openBlobs driver=memory configuration is lost on exit")
		return nvs.NewMemory(), nil, nil
	case config.DriverSQLite:
		db, err := nvs.OpenSQLite(nvs.SQLiteConfig{Path: cfg.Path})
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("daemon: unknown nvs driver %q", cfg.Driver)
	}
}
