// Package domain contains the invoice aggregate, its line-item tree and the
// persistence model.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Currency is the primary currency an invoice is edited in. Both currencies
// are always computed.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyINR Currency = "INR"
)

// ParseCurrency is case-insensitive; an empty value means USD.
func ParseCurrency(raw string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(CurrencyUSD):
		return CurrencyUSD, nil
	case string(CurrencyINR):
		return CurrencyINR, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// GroupTypeMain is the only discriminator value a loaded ServiceGroup carries.
const GroupTypeMain = "main"

// LineItem is a sub-service. An amount with Valid == false is absent.
type LineItem struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	AmountUSD   decimal.NullDecimal `json:"amountUSD"`
	AmountINR   decimal.NullDecimal `json:"amountINR"`
}

// ServiceGroup is a main line holding ordered sub-services.
type ServiceGroup struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	SubServices []LineItem `json:"subServices"`
}

type Totals struct {
	SubtotalUSD  decimal.Decimal `json:"subtotalUSD"`
	SubtotalINR  decimal.Decimal `json:"subtotalINR"`
	TaxAmountUSD decimal.Decimal `json:"taxAmountUSD"`
	TaxAmountINR decimal.Decimal `json:"taxAmountINR"`
	TotalUSD     decimal.Decimal `json:"totalUSD"`
	TotalINR     decimal.Decimal `json:"totalINR"`
}

// Invoice is the persisted record. Subtotal, tax and total columns are a
// cache of Items + TaxRate + ExchangeRate and are rewritten on every save.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"size:64;not null;uniqueIndex:ux_invoices_number" json:"invoiceNumber"`
	InvoiceDate   time.Time       `gorm:"not null;index" json:"invoiceDate"`
	RecipientName string          `gorm:"size:255;not null" json:"recipientName"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"taxRate"`
	Currency      Currency        `gorm:"size:3;not null" json:"currency"`
	ExchangeRate  decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"exchangeRate"`
	Items         datatypes.JSON  `gorm:"not null" json:"items"`

	SubtotalUSD  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"subtotalUSD"`
	SubtotalINR  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"subtotalINR"`
	TaxAmountUSD decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"taxAmountUSD"`
	TaxAmountINR decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"taxAmountINR"`
	TotalUSD     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"totalUSD"`
	TotalINR     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"totalINR"`

	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InBin reports whether the invoice has been soft-deleted.
func (i Invoice) InBin() bool { return i.DeletedAt.Valid }

// StoredAmountPlaces matches the numeric(18,2) total columns.
const StoredAmountPlaces = 2

// ApplyTotals copies t into the total columns, rounded to cents.
func (i *Invoice) ApplyTotals(t Totals) {
	i.SubtotalUSD = t.SubtotalUSD.Round(StoredAmountPlaces)
	i.SubtotalINR = t.SubtotalINR.Round(StoredAmountPlaces)
	i.TaxAmountUSD = t.TaxAmountUSD.Round(StoredAmountPlaces)
	i.TaxAmountINR = t.TaxAmountINR.Round(StoredAmountPlaces)
	i.TotalUSD = t.TotalUSD.Round(StoredAmountPlaces)
	i.TotalINR = t.TotalINR.Round(StoredAmountPlaces)
}

func (i Invoice) Totals() Totals {
	return Totals{
		SubtotalUSD:  i.SubtotalUSD,
		SubtotalINR:  i.SubtotalINR,
		TaxAmountUSD: i.TaxAmountUSD,
		TaxAmountINR: i.TaxAmountINR,
		TotalUSD:     i.TotalUSD,
		TotalINR:     i.TotalINR,
	}
}
