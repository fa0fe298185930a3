package numbering

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samatributa/invoicegen/internal/config"
	counterdomain "github.com/samatributa/invoicegen/internal/counter/domain"
	"github.com/samatributa/invoicegen/internal/counter/memory"
	invoicedomain "github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/samatributa/invoicegen/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLister struct {
	numbers []string
	err     error
}

func (l *staticLister) ListInvoiceNumbers(context.Context) ([]string, error) {
	return l.numbers, l.err
}

// plainStore hides Advance so the allocator falls back to Set.
type plainStore struct {
	inner *memory.Store
}

func (s plainStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return s.inner.Get(ctx, key)
}

func (s plainStore) Set(ctx context.Context, key string, value int64) error {
	return s.inner.Set(ctx, key, value)
}

type failingStore struct {
	getErr error
	setErr error
	value  int64
}

func (s *failingStore) Get(context.Context, string) (int64, bool, error) {
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	return s.value, s.value > 0, nil
}

func (s *failingStore) Set(context.Context, string, int64) error { return s.setErr }

// stingyAdvancer never applies, simulating a writer that always wins.
type stingyAdvancer struct {
	failingStore
}

func (s *stingyAdvancer) Advance(_ context.Context, _ string, value int64) (int64, bool, error) {
	return value + 1, false, nil
}

func newAllocator(store counterdomain.Store, lister Lister) *Allocator {
	return NewAllocator(AllocatorParams{
		Store:  store,
		Lister: lister,
		Config: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Log:    zap.NewNop(),
	})
}

func TestAllocateStartsAtOne(t *testing.T) {
	a := newAllocator(memory.NewStore(), &staticLister{})

	serial, err := a.Allocate(context.Background(), "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), serial)
}

func TestAllocateCommitIsStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	a := newAllocator(memory.NewStore(), &staticLister{})

	prev := int64(0)
	for i := 0; i < 5; i++ {
		serial, err := a.Allocate(ctx, "ACME", true)
		require.NoError(t, err)
		assert.Greater(t, serial, prev)
		prev = serial
	}
	assert.Equal(t, int64(5), prev)
}

func TestAllocatePreviewIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "invoiceSerial_ACME", 4))
	a := newAllocator(store, &staticLister{})

	first, err := a.Allocate(ctx, "ACME", false)
	require.NoError(t, err)
	second, err := a.Allocate(ctx, "ACME", false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), first)
	assert.Equal(t, first, second)

	v, _, err := store.Get(ctx, "invoiceSerial_ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	committed, err := a.Allocate(ctx, "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, first, committed)
}

func TestAllocateReconcilesWithExistingInvoices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "invoiceSerial_ACME", 3))
	lister := &staticLister{numbers: []string{
		"ACME-20240101-0007",
		"ACME-20240102-0002",
		"BETA-20240101-0040",
		"garbage",
		"ACME-2024-0099",
	}}
	a := newAllocator(store, lister)

	serial, err := a.Allocate(ctx, "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, int64(8), serial)

	v, _, err := store.Get(ctx, "invoiceSerial_ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestAllocateWatermarkBehindLatestInvoice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "invoiceSerial_ACME", 3))
	g := NewGenerator(
		newAllocator(store, &staticLister{numbers: []string{"ACME-20250101-0010"}}),
		config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
	)

	got, err := g.Generate(ctx, "Acme", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.Serial)
	assert.Equal(t, "ACME-20250102-0011", got.Number)

	v, _, err := store.Get(ctx, "invoiceSerial_ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)
}

func TestAllocatePrefixesAreIndependent(t *testing.T) {
	ctx := context.Background()
	a := newAllocator(memory.NewStore(), &staticLister{})

	for i := 0; i < 3; i++ {
		_, err := a.Allocate(ctx, "ACME", true)
		require.NoError(t, err)
	}
	serial, err := a.Allocate(ctx, "BETA", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), serial)
}

func TestAllocateWithPlainStore(t *testing.T) {
	ctx := context.Background()
	store := plainStore{inner: memory.NewStore()}
	a := newAllocator(store, &staticLister{})

	first, err := a.Allocate(ctx, "ACME", true)
	require.NoError(t, err)
	second, err := a.Allocate(ctx, "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestAllocateConcurrentCommitsAreUnique(t *testing.T) {
	ctx := context.Background()
	a := newAllocator(memory.NewStore(), &staticLister{})

	const workers = 8
	const perWorker = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	var failures []error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				serial, err := a.Allocate(ctx, "ACME", true)
				mu.Lock()
				if err != nil {
					failures = append(failures, err)
				} else {
					assert.False(t, seen[serial], "duplicate serial %d", serial)
					seen[serial] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, err := range failures {
		assert.ErrorIs(t, err, invoicedomain.ErrAllocationContention)
	}
	assert.Equal(t, workers*perWorker, len(seen)+len(failures))
}

func TestAllocateCorruptWatermarkTreatedAsZero(t *testing.T) {
	store := &failingStore{getErr: counterdomain.ErrCorruptValue}
	a := newAllocator(store, &staticLister{numbers: []string{"ACME-20240101-0002"}})

	serial, err := a.Allocate(context.Background(), "ACME", true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), serial)
}

func TestAllocatePersistenceFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	a := newAllocator(&failingStore{getErr: boom}, &staticLister{})
	_, err := a.Allocate(ctx, "ACME", false)
	assert.ErrorIs(t, err, invoicedomain.ErrPersistenceUnavailable)
	assert.ErrorIs(t, err, boom)

	a = newAllocator(&failingStore{setErr: boom}, &staticLister{})
	serial, err := a.Allocate(ctx, "ACME", true)
	assert.ErrorIs(t, err, invoicedomain.ErrPersistenceUnavailable)
	assert.Zero(t, serial)

	a = newAllocator(memory.NewStore(), &staticLister{err: boom})
	_, err = a.Allocate(ctx, "ACME", true)
	assert.ErrorIs(t, err, invoicedomain.ErrPersistenceUnavailable)
}

func TestAllocateContention(t *testing.T) {
	a := newAllocator(&stingyAdvancer{}, &staticLister{})

	_, err := a.Allocate(context.Background(), "ACME", true)
	assert.ErrorIs(t, err, invoicedomain.ErrAllocationContention)
}

func TestAllocateRejectsEmptyPrefix(t *testing.T) {
	a := newAllocator(memory.NewStore(), &staticLister{})

	_, err := a.Allocate(context.Background(), "", true)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPrefix)
}

func TestAllocateRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg, metrics.Config{ServiceName: "invoicegen", Environment: "test"})
	a := NewAllocator(AllocatorParams{
		Store:   memory.NewStore(),
		Lister:  &staticLister{},
		Config:  config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Log:     zap.NewNop(),
		Metrics: m,
	})

	_, err := a.Allocate(context.Background(), "ACME", true)
	require.NoError(t, err)
	_, err = a.Allocate(context.Background(), "ACME", false)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "invoicegen_serial_allocations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGeneratorGenerate(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator(newAllocator(memory.NewStore(), &staticLister{}), config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()))
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	preview, err := g.Generate(ctx, "acme corp", date, false)
	require.NoError(t, err)
	assert.Equal(t, "ACME-20240315-0001", preview.Number)

	first, err := g.Generate(ctx, "acme corp", date, true)
	require.NoError(t, err)
	assert.Equal(t, preview.Number, first.Number)

	second, err := g.Generate(ctx, "Acme Industries", date, true)
	require.NoError(t, err)
	assert.Equal(t, "ACME-20240315-0002", second.Number)

	blank, err := g.Generate(ctx, "  ", date, true)
	require.NoError(t, err)
	assert.Equal(t, "CUST-20240315-0001", blank.Number)
	assert.Equal(t, "CUST", blank.Prefix)
}

var invoiceNumberPattern = regexp.MustCompile(`^[A-Z]{1,4}-[0-9]{8}-[0-9]{4}$`)

func TestGeneratorNumbersMatchFormat(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator(newAllocator(memory.NewStore(), &staticLister{}), config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()))
	date := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	names := []string{"acme corp", "X", "  ", "123 Widgets Ltd", "Café Noir", "o'neil & sons", "ACME"}
	for _, name := range names {
		got, err := g.Generate(ctx, name, date, true)
		require.NoError(t, err)
		assert.Regexp(t, invoiceNumberPattern, got.Number, "name %q", name)
	}
}

func TestGeneratorUpdatePrefixDoesNotAllocate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	g := NewGenerator(newAllocator(store, &staticLister{}), config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()))

	assert.Equal(t, "BETA-20240315-0007", g.UpdatePrefix("ACME-20240315-0007", "beta"))
	assert.Equal(t, "bogus", g.UpdatePrefix("bogus", "beta"))

	_, found, err := store.Get(ctx, "invoiceSerial_BETA")
	require.NoError(t, err)
	assert.False(t, found)
}
