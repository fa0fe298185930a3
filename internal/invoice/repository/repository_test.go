package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (*Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Invoice{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(conn), conn, node
}

func newInvoice(node *snowflake.Node, number string) *domain.Invoice {
	items, _ := domain.EncodeItems(nil)
	return &domain.Invoice{
		ID:            node.Generate(),
		InvoiceNumber: number,
		InvoiceDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		RecipientName: "Acme",
		TaxRate:       decimal.NewFromInt(5),
		Currency:      domain.CurrencyUSD,
		ExchangeRate:  decimal.NewFromInt(83),
		Items:         items,
	}
}

func TestCreateAndFind(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	inv := newInvoice(node, "ACME-20240315-0001")
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.FindByID(ctx, inv.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "ACME-20240315-0001", got.InvoiceNumber)
	assert.True(t, got.TaxRate.Equal(decimal.NewFromInt(5)))

	_, err = repo.FindByID(ctx, node.Generate(), false)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestCreateDuplicateNumber(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newInvoice(node, "ACME-20240315-0001")))
	err := repo.Create(ctx, newInvoice(node, "ACME-20240315-0001"))
	assert.ErrorIs(t, err, domain.ErrDuplicateInvoiceNumber)
}

func TestBinLifecycle(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	inv := newInvoice(node, "ACME-20240315-0001")
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, repo.MoveToBin(ctx, inv.ID))

	_, err := repo.FindByID(ctx, inv.ID, false)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	binned, err := repo.FindByID(ctx, inv.ID, true)
	require.NoError(t, err)
	assert.True(t, binned.InBin())

	active, err := repo.List(ctx, 0, 10, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	bin, err := repo.List(ctx, 0, 10, true)
	require.NoError(t, err)
	assert.Len(t, bin, 1)

	assert.ErrorIs(t, repo.MoveToBin(ctx, inv.ID), domain.ErrInvoiceNotFound)

	require.NoError(t, repo.Restore(ctx, inv.ID))
	restored, err := repo.FindByID(ctx, inv.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.InBin())

	assert.ErrorIs(t, repo.Restore(ctx, inv.ID), domain.ErrInvoiceNotFound)
}

func TestListInvoiceNumbersIncludesBinned(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	a := newInvoice(node, "ACME-20240315-0001")
	b := newInvoice(node, "ACME-20240315-0002")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.MoveToBin(ctx, b.ID))

	numbers, err := repo.ListInvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ACME-20240315-0001", "ACME-20240315-0002"}, numbers)
}

func TestListPagination(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	var ids []snowflake.ID
	for i := 1; i <= 5; i++ {
		inv := newInvoice(node, fmt.Sprintf("ACME-20240315-%04d", i))
		require.NoError(t, repo.Create(ctx, inv))
		ids = append(ids, inv.ID)
	}

	page, err := repo.List(ctx, 0, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	next, err := repo.List(ctx, page[1].ID, 10, false)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[2], next[0].ID)
}

func TestPurgeBinRespectsCutoff(t *testing.T) {
	repo, conn, node := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	old := newInvoice(node, "ACME-20240101-0001")
	recent := newInvoice(node, "ACME-20240101-0002")
	active := newInvoice(node, "ACME-20240101-0003")
	for _, inv := range []*domain.Invoice{old, recent, active} {
		require.NoError(t, repo.Create(ctx, inv))
	}
	require.NoError(t, conn.Unscoped().Model(&domain.Invoice{}).Where("id = ?", old.ID).Update("deleted_at", now.AddDate(0, 0, -40)).Error)
	require.NoError(t, conn.Unscoped().Model(&domain.Invoice{}).Where("id = ?", recent.ID).Update("deleted_at", now.AddDate(0, 0, -5)).Error)

	purged, remaining, err := repo.PurgeBin(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, int64(1), remaining)

	numbers, err := repo.ListInvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ACME-20240101-0002", "ACME-20240101-0003"}, numbers)
}

func TestSaveDuplicateNumber(t *testing.T) {
	repo, _, node := setupRepo(t)
	ctx := context.Background()

	a := newInvoice(node, "ACME-20240315-0001")
	b := newInvoice(node, "BETA-20240315-0001")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	b.InvoiceNumber = a.InvoiceNumber
	assert.ErrorIs(t, repo.Save(ctx, b), domain.ErrDuplicateInvoiceNumber)
}
