package scheduler

import (
	"context"
	"time"

	obscontext "github.com/samatributa/invoicegen/internal/observability/context"
	obslogger "github.com/samatributa/invoicegen/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int64
}

func (r *jobRun) AddProcessed(count int64) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (s *Scheduler) startJob(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
	ctx = obscontext.WithRequestID(ctx, "job-"+run.runID)
	s.logger(ctx).Info("job started", zap.String("job", job), zap.String("run_id", run.runID))
	return ctx, run
}

func (s *Scheduler) finishJob(ctx context.Context, run *jobRun, result string, err error) {
	elapsed := time.Since(run.startedAt)
	s.metrics.RecordJob(run.job, result, elapsed)

	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.String("result", result),
		zap.Int64("processed", run.processedCount),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger(ctx).Warn("job failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger(ctx).Info("job finished", fields...)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
