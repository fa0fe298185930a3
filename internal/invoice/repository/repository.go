package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/samatributa/invoicegen/pkg/db"
	"github.com/samatributa/invoicegen/pkg/repository"
	"gorm.io/gorm"
)

// Repository stores invoices. Binned invoices are soft-deleted rows.
type Repository struct {
	db       *gorm.DB
	invoices repository.Repository[domain.Invoice]
}

func New(conn *gorm.DB) *Repository {
	return &Repository{
		db:       conn,
		invoices: repository.ProvideStore[domain.Invoice](conn),
	}
}

func (r *Repository) Create(ctx context.Context, inv *domain.Invoice) error {
	if err := r.invoices.Create(ctx, inv); err != nil {
		return translate(err)
	}
	return nil
}

// Save writes every column of an active invoice.
func (r *Repository) Save(ctx context.Context, inv *domain.Invoice) error {
	if err := r.invoices.Save(ctx, inv); err != nil {
		return translate(err)
	}
	return nil
}

// FindByID loads an active invoice, or a binned one when binned is true.
func (r *Repository) FindByID(ctx context.Context, id snowflake.ID, binned bool) (*domain.Invoice, error) {
	opts := []repository.QueryOption{repository.WithWhere("id = ?", id)}
	if binned {
		opts = append(opts, repository.WithUnscoped(), repository.WithWhere("deleted_at IS NOT NULL"))
	}
	inv, err := r.invoices.FindOne(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

// List returns up to limit invoices with id below before (zero means from
// the newest), newest first.
func (r *Repository) List(ctx context.Context, before snowflake.ID, limit int, binned bool) ([]domain.Invoice, error) {
	opts := []repository.QueryOption{repository.WithOrder("id DESC"), repository.WithLimit(limit)}
	if before != 0 {
		opts = append(opts, repository.WithWhere("id < ?", before))
	}
	if binned {
		opts = append(opts, repository.WithUnscoped(), repository.WithWhere("deleted_at IS NOT NULL"))
	}

	rows, err := r.invoices.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

// ListInvoiceNumbers includes binned invoices so their serials stay taken.
func (r *Repository) ListInvoiceNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&domain.Invoice{}).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("list invoice numbers: %w", err)
	}
	return numbers, nil
}

func (r *Repository) MoveToBin(ctx context.Context, id snowflake.ID) error {
	affected, err := r.invoices.Delete(ctx, repository.WithWhere("id = ?", id))
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *Repository) Restore(ctx context.Context, id snowflake.ID) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&domain.Invoice{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// PurgeBin hard-deletes invoices binned before olderThan and reports how
// many binned invoices remain, both within one transaction.
func (r *Repository) PurgeBin(ctx context.Context, olderThan time.Time) (purged, remaining int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := r.invoices.WithTrx(tx)

		purged, err = invoices.Delete(ctx,
			repository.WithUnscoped(),
			repository.WithWhere("deleted_at IS NOT NULL AND deleted_at < ?", olderThan),
		)
		if err != nil {
			return err
		}

		remaining, err = invoices.Count(ctx, nil,
			repository.WithUnscoped(),
			repository.WithWhere("deleted_at IS NOT NULL"),
		)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("purge bin: %w", err)
	}
	return purged, remaining, nil
}

func translate(err error) error {
	if db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateInvoiceNumber, err)
	}
	return err
}
