package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samatributa/invoicegen/internal/clock"
	"github.com/samatributa/invoicegen/internal/config"
	"github.com/samatributa/invoicegen/internal/invoice/currency"
	invoicedomain "github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/samatributa/invoicegen/internal/invoice/numbering"
	"github.com/samatributa/invoicegen/internal/invoice/repository"
	"github.com/samatributa/invoicegen/internal/observability/logger"
	"github.com/samatributa/invoicegen/internal/observability/metrics"
	"github.com/samatributa/invoicegen/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Repo      *repository.Repository
	Generator *numbering.Generator
	Config    *config.InvoicingConfigHolder
	Clock     clock.Clock
	GenID     *snowflake.Node
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	repo      *repository.Repository
	generator *numbering.Generator
	cfg       *config.InvoicingConfigHolder
	clock     clock.Clock
	genID     *snowflake.Node
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		repo:      p.Repo,
		generator: p.Generator,
		cfg:       p.Config,
		clock:     p.Clock,
		genID:     p.GenID,
		log:       p.Log.Named("invoice.service"),
		metrics:   p.Metrics,
	}
}

func (s *Service) PreviewNumber(ctx context.Context, req invoicedomain.PreviewNumberRequest) (invoicedomain.PreviewNumberResponse, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return invoicedomain.PreviewNumberResponse{}, err
	}

	generated, err := s.generator.Generate(ctx, req.CustomerName, date, false)
	if err != nil {
		return invoicedomain.PreviewNumberResponse{}, err
	}
	return invoicedomain.PreviewNumberResponse{
		InvoiceNumber: generated.Number,
		Prefix:        generated.Prefix,
		Serial:        generated.Serial,
	}, nil
}

func (s *Service) RelabelNumber(_ context.Context, req invoicedomain.RelabelNumberRequest) (invoicedomain.RelabelNumberResponse, error) {
	return invoicedomain.RelabelNumberResponse{
		InvoiceNumber: s.generator.UpdatePrefix(req.InvoiceNumber, req.CustomerName),
	}, nil
}

func (s *Service) Recalculate(ctx context.Context, req invoicedomain.RecalculateRequest) (invoicedomain.RecalculateResponse, error) {
	groups, err := invoicedomain.DecodeItems(req.Items)
	if err != nil {
		return invoicedomain.RecalculateResponse{}, err
	}
	primary, err := invoicedomain.ParseCurrency(req.Currency)
	if err != nil {
		return invoicedomain.RecalculateResponse{}, err
	}
	rate := s.resolveRate(req.ExchangeRate)

	items, totals, err := s.recalculate(ctx, groups, req.TaxRate, rate, primary)
	if err != nil {
		return invoicedomain.RecalculateResponse{}, err
	}
	return invoicedomain.RecalculateResponse{
		Items:        items,
		Totals:       totals,
		Currency:     primary,
		ExchangeRate: rate,
	}, nil
}

// Create recalculates before allocating so a rejected payload never burns a
// serial. A failed insert after allocation leaves a gap in the sequence.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	log := logger.WithContext(ctx, s.log)

	date, err := s.parseDate(req.InvoiceDate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	primary, err := invoicedomain.ParseCurrency(req.Currency)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	groups, err := invoicedomain.DecodeItems(req.Items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	rate := s.resolveRate(req.ExchangeRate)

	items, totals, err := s.recalculate(ctx, groups, req.TaxRate, rate, primary)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	encoded, err := invoicedomain.EncodeItems(items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	generated, err := s.generator.Generate(ctx, req.RecipientName, date, true)
	if err != nil {
		log.Warn("invoice number allocation failed", zap.String("recipient", req.RecipientName), zap.Error(err))
		return invoicedomain.Invoice{}, err
	}

	inv := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		InvoiceNumber: generated.Number,
		InvoiceDate:   date,
		RecipientName: strings.TrimSpace(req.RecipientName),
		TaxRate:       req.TaxRate,
		Currency:      primary,
		ExchangeRate:  rate,
		Items:         encoded,
	}
	inv.ApplyTotals(totals)

	if err := s.repo.Create(ctx, &inv); err != nil {
		log.Error("invoice insert failed after serial allocation",
			zap.String("invoice_number", generated.Number),
			zap.Error(err),
		)
		return invoicedomain.Invoice{}, err
	}

	log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
	)
	return inv, nil
}

// Update applies a partial change. A new recipient relabels the number's
// prefix; the date and serial never change.
func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if req.RecipientName != nil {
		name := strings.TrimSpace(*req.RecipientName)
		if name != inv.RecipientName {
			inv.InvoiceNumber = s.generator.UpdatePrefix(inv.InvoiceNumber, name)
			inv.RecipientName = name
		}
	}
	if req.Currency != nil {
		primary, err := invoicedomain.ParseCurrency(*req.Currency)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		inv.Currency = primary
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.ExchangeRate != nil {
		inv.ExchangeRate = *req.ExchangeRate
	}

	source := []byte(inv.Items)
	if len(req.Items) > 0 {
		source = req.Items
	}
	groups, err := invoicedomain.DecodeItems(source)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	items, totals, err := s.recalculate(ctx, groups, inv.TaxRate, inv.ExchangeRate, inv.Currency)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	encoded, err := invoicedomain.EncodeItems(items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv.Items = encoded
	inv.ApplyTotals(totals)

	if err := s.repo.Save(ctx, inv); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) Get(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	inv, err := s.repo.FindByID(ctx, invoiceID, false)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.canonical(*inv), nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	return s.list(ctx, req, false)
}

func (s *Service) ListBin(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	return s.list(ctx, req, true)
}

func (s *Service) MoveToBin(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.MoveToBin(ctx, invoiceID); err != nil {
		return err
	}
	logger.WithContext(ctx, s.log).Info("invoice moved to bin", zap.String("invoice_id", invoiceID.String()))
	return nil
}

func (s *Service) Restore(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := s.repo.Restore(ctx, invoiceID); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) PurgeBin(ctx context.Context, olderThan time.Time) (int64, error) {
	purged, remaining, err := s.repo.PurgeBin(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	s.metrics.AddBinPurged(purged)
	s.metrics.SetBinSize(remaining)
	return purged, nil
}

func (s *Service) list(ctx context.Context, req invoicedomain.ListInvoiceRequest, binned bool) (invoicedomain.ListInvoiceResponse, error) {
	var before snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		if before, err = parseID(cursor.ID); err != nil {
			return invoicedomain.ListInvoiceResponse{}, pagination.ErrInvalidPageToken
		}
	}

	size := pagination.NormalizePageSize(req.PageSize)
	rows, err := s.repo.List(ctx, before, size+1, binned)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	page, info, err := pagination.BuildCursorPageInfo(rows, size, func(inv invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID.String()}
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	for i := range page {
		page[i] = s.canonical(page[i])
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: info, Invoices: page}, nil
}

func (s *Service) recalculate(ctx context.Context, groups []invoicedomain.ServiceGroup, taxRate, rate decimal.Decimal, primary invoicedomain.Currency) ([]invoicedomain.ServiceGroup, invoicedomain.Totals, error) {
	items, totals, err := currency.Recalculate(groups, taxRate, rate, primary)
	if err != nil {
		s.metrics.RecordRecalculation(metrics.ResultInvalid)
		logger.WithContext(ctx, s.log).Debug("recalculation rejected", zap.String("rate", rate.String()), zap.Error(err))
		return nil, invoicedomain.Totals{}, err
	}
	s.metrics.RecordRecalculation(metrics.ResultOK)
	return items, totals, nil
}

// canonical rewrites legacy item shapes in a loaded invoice. Rows that fail
// to decode are returned as stored.
func (s *Service) canonical(inv invoicedomain.Invoice) invoicedomain.Invoice {
	groups, err := invoicedomain.DecodeItems(inv.Items)
	if err != nil {
		s.log.Warn("stored items not decodable", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		return inv
	}
	if encoded, err := invoicedomain.EncodeItems(groups); err == nil {
		inv.Items = encoded
	}
	return inv
}

func (s *Service) resolveRate(rate decimal.NullDecimal) decimal.Decimal {
	if rate.Valid {
		return rate.Decimal
	}
	return s.cfg.Get().ExchangeRate()
}

func (s *Service) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := s.clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(invoicedomain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", invoicedomain.ErrInvalidInvoiceDate, raw)
	}
	return date, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}
