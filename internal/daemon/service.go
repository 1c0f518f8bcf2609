package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	tasktimer "github.com/sliterok/tasktimer"
	"github.com/sliterok/tasktimer/internal/config"
	"github.com/sliterok/tasktimer/internal/storage"
	"github.com/sliterok/tasktimer/pkg/logx"
	"github.com/sliterok/tasktimer/ticker"
)

type Options struct {
	Config *config.Config
	Log    logx.Logger
	Store  storage.Store

	// Clock overrides the timer's wakeup source; nil means wall clock.
	// Tests inject ticker.NewManual().
	Clock ticker.Clock
}

// Service owns the timer and everything around it.
type Service struct {
	mu        sync.Mutex
	cfg       *config.Config
	retention time.Duration

	log   logx.Logger
	store storage.Store
	timer *tasktimer.Timer
	cron  *cron.Cron

	// tickLog caps tick/task log chatter at high resolutions.
	tickLog *rate.Limiter

	runCtx    context.Context
	runCancel context.CancelFunc
	offs      []func()
}

func New(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if opts.Store == nil {
		opts.Store = storage.Noop()
	}
	interval, err := opts.Config.Timer.ParseInterval()
	if err != nil {
		return nil, err
	}
	retention, err := opts.Config.History.ParseRetention()
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       opts.Config,
		retention: retention,
		log:       opts.Log,
		store:     opts.Store,
		tickLog:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	s.timer = tasktimer.New(tasktimer.Options{
		Interval:        interval,
		StopOnCompleted: opts.Config.Timer.StopOnCompleted,
		Clock:           opts.Clock,
		Logger:          opts.Log.With(logx.String("component", "timer")),
	})
	s.subscribeEvents()

	for _, tc := range opts.Config.Tasks {
		topts, err := s.taskOptions(tc)
		if err != nil {
			return nil, err
		}
		if err := s.timer.Add(topts); err != nil {
			return nil, err
		}
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(opts.Config.History.Schedule(), s.pruneHistory); err != nil {
		return nil, fmt.Errorf("daemon: bad prune schedule %q: %w", opts.Config.History.Schedule(), err)
	}
	return s, nil
}

// Timer exposes the underlying timer, mainly for inspection and tests.
func (s *Service) Timer() *tasktimer.Timer { return s.timer }

// Start begins ticking. ctx bounds the lifetime of task commands: when it
// is canceled, in-flight commands are killed. A stopped service may be
// started again; Stop drops the event listeners, so they are re-attached
// here.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	subscribed := len(s.offs) > 0
	s.mu.Unlock()

	if !subscribed {
		s.subscribeEvents()
	}
	s.registerWatchdog()
	s.timer.Start()
	s.cron.Start()
	s.log.Info("daemon started",
		logx.Duration("interval", s.timer.Interval()),
		logx.Int("tasks", s.timer.TaskCount()))
	return nil
}

// Stop halts the timer and the housekeeping schedule. In-flight work is
// given until ctx to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.timer.Stop()

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	s.mu.Lock()
	cancel := s.runCancel
	s.runCancel = nil
	offs := s.offs
	s.offs = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, off := range offs {
		off()
	}
	s.log.Info("daemon stopped")
	return nil
}

// WatchConfig applies config updates from mgr until ctx is done.
func (s *Service) WatchConfig(ctx context.Context, mgr *config.Manager) {
	ch := mgr.Subscribe(1)
	defer mgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			if err := s.Apply(cfg); err != nil {
				s.log.Error("config apply failed", logx.Err(err))
			}
		}
	}
}

func (s *Service) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return s.runCtx
	}
	return context.Background()
}

func (s *Service) retentionNow() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retention
}

func (s *Service) pruneHistory() {
	cutoff := time.Now().Add(-s.retentionNow())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("history prune failed", logx.Err(err))
		return
	}
	s.log.Info("history pruned", logx.Int64("deleted", n), logx.Time("cutoff", cutoff))
}
