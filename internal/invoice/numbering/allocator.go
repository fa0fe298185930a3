// Package numbering allocates per-prefix invoice serials and renders the
// resulting invoice numbers.
package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/samatributa/invoicegen/internal/config"
	counterdomain "github.com/samatributa/invoicegen/internal/counter/domain"
	invoicedomain "github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/samatributa/invoicegen/internal/invoice/format"
	"github.com/samatributa/invoicegen/internal/observability/metrics"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Lister returns every invoice number ever issued, binned ones included.
type Lister interface {
	ListInvoiceNumbers(ctx context.Context) ([]string, error)
}

type AllocatorParams struct {
	fx.In

	Store   counterdomain.Store
	Lister  Lister
	Config  *config.InvoicingConfigHolder
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Allocator hands out serials per prefix. The next serial is one past the
// larger of the stored watermark and the highest serial already used by an
// existing invoice with the same prefix.
type Allocator struct {
	store   counterdomain.Store
	lister  Lister
	cfg     *config.InvoicingConfigHolder
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewAllocator(p AllocatorParams) *Allocator {
	return &Allocator{
		store:   p.Store,
		lister:  p.Lister,
		cfg:     p.Config,
		log:     p.Log.Named("invoice.numbering"),
		metrics: p.Metrics,
	}
}

// Allocate returns the next serial for prefix. With commit=false nothing is
// written and repeated calls return the same value. With commit=true the
// watermark is raised to the returned serial before it is handed out.
func (a *Allocator) Allocate(ctx context.Context, prefix string, commit bool) (int64, error) {
	mode := metrics.AllocationModePreview
	if commit {
		mode = metrics.AllocationModeCommit
	}

	serial, err := a.allocate(ctx, prefix, commit)
	a.metrics.RecordAllocation(mode, allocationResult(err))
	return serial, err
}

func (a *Allocator) allocate(ctx context.Context, prefix string, commit bool) (int64, error) {
	if prefix == "" {
		return 0, invoicedomain.ErrInvalidPrefix
	}
	numbering := a.cfg.Get().Numbering
	key := counterdomain.SerialKey(numbering.KeyPrefix, prefix)

	watermark, err := a.readWatermark(ctx, key)
	if err != nil {
		return 0, err
	}
	floor, err := a.scanFloor(ctx, prefix)
	if err != nil {
		return 0, err
	}
	candidate := max(watermark, floor) + 1

	a.log.Debug("serial candidate",
		zap.String("prefix", prefix),
		zap.Int64("watermark", watermark),
		zap.Int64("floor", floor),
		zap.Int64("candidate", candidate),
		zap.Bool("commit", commit),
	)

	if !commit {
		return candidate, nil
	}

	advancer, ok := a.store.(counterdomain.Advancer)
	if !ok {
		if err := a.store.Set(ctx, key, candidate); err != nil {
			return 0, fmt.Errorf("%w: %w", invoicedomain.ErrPersistenceUnavailable, err)
		}
		return candidate, nil
	}

	attempts := numbering.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		current, applied, err := advancer.Advance(ctx, key, candidate)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", invoicedomain.ErrPersistenceUnavailable, err)
		}
		if applied {
			return candidate, nil
		}
		a.metrics.RecordAllocationRetry()
		a.log.Debug("serial taken by concurrent writer",
			zap.String("prefix", prefix),
			zap.Int64("candidate", candidate),
			zap.Int64("current", current),
		)
		candidate = max(current, candidate) + 1
	}
	return 0, fmt.Errorf("%w: prefix %s after %d attempts", invoicedomain.ErrAllocationContention, prefix, attempts)
}

func (a *Allocator) readWatermark(ctx context.Context, key string) (int64, error) {
	value, found, err := a.store.Get(ctx, key)
	switch {
	case errors.Is(err, counterdomain.ErrCorruptValue):
		a.log.Warn("corrupt serial watermark treated as zero", zap.String("key", key), zap.Error(err))
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %w", invoicedomain.ErrPersistenceUnavailable, err)
	case !found:
		return 0, nil
	}
	return value, nil
}

func (a *Allocator) scanFloor(ctx context.Context, prefix string) (int64, error) {
	if a.lister == nil {
		return 0, nil
	}
	numbers, err := a.lister.ListInvoiceNumbers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", invoicedomain.ErrPersistenceUnavailable, err)
	}
	serials := lo.FilterMap(numbers, func(number string, _ int) (int64, bool) {
		parsed, ok := format.ParseInvoiceNumber(number)
		return parsed.Serial, ok && parsed.Prefix == prefix
	})
	return lo.Max(serials), nil
}

func allocationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, invoicedomain.ErrAllocationContention):
		return metrics.ResultContention
	case errors.Is(err, invoicedomain.ErrPersistenceUnavailable):
		return metrics.ResultUnavailable
	case errors.Is(err, invoicedomain.ErrInvalidPrefix):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
