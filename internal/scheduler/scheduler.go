package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samatributa/invoicegen/internal/clock"
	"github.com/samatributa/invoicegen/internal/lock"
	"github.com/samatributa/invoicegen/internal/observability/metrics"
	"github.com/samatributa/invoicegen/internal/observability/pusher"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobBinPurge     = "bin_purge"
	binPurgeLockKey = "invoicegen:lock:bin-purge"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Purger permanently removes invoices binned before olderThan.
type Purger interface {
	PurgeBin(ctx context.Context, olderThan time.Time) (int64, error)
}

type Params struct {
	fx.In

	Purger  Purger
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config           `optional:"true"`
	Locker  *lock.Locker     `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Pusher  pusher.Pusher    `optional:"true"`
}

type Scheduler struct {
	purger  Purger
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     Config
	locker  *lock.Locker
	metrics *metrics.Metrics
	pusher  pusher.Pusher
}

func New(p Params) (*Scheduler, error) {
	if p.Purger == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		purger:  p.Purger,
		log:     p.Log.Named("scheduler"),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		locker:  p.Locker,
		metrics: p.Metrics,
		pusher:  p.Pusher,
	}, nil
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := s.BinPurgeJob(ctx)
	s.pushMetrics(ctx)
	return err
}

func (s *Scheduler) pushMetrics(ctx context.Context) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.Push(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("metrics push failed", zap.Error(err))
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// BinPurgeJob deletes invoices that have sat in the bin longer than the
// retention period. With redis configured only one replica runs it at a time.
func (s *Scheduler) BinPurgeJob(ctx context.Context) error {
	ctx, run := s.startJob(ctx, JobBinPurge)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	purge := func(ctx context.Context) error {
		cutoff := s.clock.Now().Add(-s.cfg.Retention)
		purged, err := s.purger.PurgeBin(ctx, cutoff)
		run.AddProcessed(purged)
		return err
	}

	var err error
	if s.locker != nil {
		err = s.locker.Do(ctx, binPurgeLockKey, s.cfg.LockTTL, purge)
	} else {
		err = purge(ctx)
	}

	switch {
	case errors.Is(err, lock.ErrHeld):
		s.finishJob(ctx, run, metrics.ResultSkipped, nil)
		return nil
	case err != nil:
		s.finishJob(ctx, run, metrics.ResultError, err)
		return err
	}
	s.finishJob(ctx, run, metrics.ResultOK, nil)
	return nil
}
