package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samatributa/invoicegen/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of invoice dates.
const DateLayout = "2006-01-02"

type PreviewNumberRequest struct {
	CustomerName string `json:"customerName"`
	// Date defaults to today when empty.
	Date string `json:"date"`
}

type PreviewNumberResponse struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Prefix        string `json:"prefix"`
	Serial        int64  `json:"serial"`
}

type RelabelNumberRequest struct {
	InvoiceNumber string `json:"invoiceNumber"`
	CustomerName  string `json:"customerName"`
}

type RelabelNumberResponse struct {
	InvoiceNumber string `json:"invoiceNumber"`
}

type RecalculateRequest struct {
	Items        json.RawMessage     `json:"items"`
	TaxRate      decimal.Decimal     `json:"taxRate"`
	Currency     string              `json:"currency"`
	ExchangeRate decimal.NullDecimal `json:"exchangeRate"`
}

type RecalculateResponse struct {
	Items        []ServiceGroup  `json:"items"`
	Totals       Totals          `json:"totals"`
	Currency     Currency        `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
}

type CreateInvoiceRequest struct {
	RecipientName string              `json:"recipientName"`
	InvoiceDate   string              `json:"invoiceDate"`
	TaxRate       decimal.Decimal     `json:"taxRate"`
	Currency      string              `json:"currency"`
	ExchangeRate  decimal.NullDecimal `json:"exchangeRate"`
	Items         json.RawMessage     `json:"items"`
}

// UpdateInvoiceRequest is a partial update; nil fields are left as stored.
// The invoice date is fixed once a number has been issued for it.
type UpdateInvoiceRequest struct {
	ID            string           `json:"-"`
	RecipientName *string          `json:"recipientName"`
	TaxRate       *decimal.Decimal `json:"taxRate"`
	Currency      *string          `json:"currency"`
	ExchangeRate  *decimal.Decimal `json:"exchangeRate"`
	Items         json.RawMessage  `json:"items"`
}

type ListInvoiceRequest struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	PreviewNumber(ctx context.Context, req PreviewNumberRequest) (PreviewNumberResponse, error)
	RelabelNumber(ctx context.Context, req RelabelNumberRequest) (RelabelNumberResponse, error)
	Recalculate(ctx context.Context, req RecalculateRequest) (RecalculateResponse, error)

	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (Invoice, error)
	Get(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)

	ListBin(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	MoveToBin(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (Invoice, error)
	// PurgeBin permanently deletes invoices binned before olderThan.
	PurgeBin(ctx context.Context, olderThan time.Time) (int64, error)
}
