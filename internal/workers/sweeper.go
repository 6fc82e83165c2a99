package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Maintenance is the part of the chifumi service the sweeper drives.
type Maintenance interface {
	ExpireStale(ctx context.Context) (int, error)
	SettleOutstanding(ctx context.Context) (int, error)
}

type Config struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sweeper periodically cancels expired challenges and completes settlements
// that a crash left behind. Neither job is needed for correctness of a single
// request; they keep listings tidy and finish interrupted payouts.
type Sweeper struct {
	cfg       Config
	chifumi   Maintenance
	logger    Logger
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSweeper(cfg Config, chifumi Maintenance, logger Logger) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		cfg:     cfg,
		chifumi: chifumi,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Sweeper) Init() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			s.RunOnce(s.ctx)
		}),
		gocron.WithName("chifumi-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.scheduler = sched
	return nil
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started, every %s", s.cfg.Interval)
	s.scheduler.Start()

	select {
	case <-ctx.Done():
		s.cancel()
	case <-s.ctx.Done():
	}
}

func (s *Sweeper) Stop() {
	s.cancel()
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warn("sweeper shutdown: %v", err)
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	expired, err := s.chifumi.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("sweep: failed to expire challenges: %v", err)
	} else if expired > 0 {
		s.logger.Info("sweep: %d expired challenges cancelled", expired)
	}

	settled, err := s.chifumi.SettleOutstanding(ctx)
	if err != nil {
		s.logger.Error("sweep: failed to settle matches: %v", err)
	} else if settled > 0 {
		s.logger.Warn("sweep: %d finished matches settled late", settled)
	}
}
