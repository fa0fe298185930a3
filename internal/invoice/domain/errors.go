package domain

import "errors"

var (
	ErrInvalidExchangeRate    = errors.New("invalid_exchange_rate")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrInvalidPrefix          = errors.New("invalid_prefix")
	ErrInvalidItems           = errors.New("invalid_items")
	ErrInvalidInvoiceID       = errors.New("invalid_invoice_id")
	ErrInvalidInvoiceDate     = errors.New("invalid_invoice_date")
	ErrPersistenceUnavailable = errors.New("persistence_unavailable")
	ErrAllocationContention   = errors.New("allocation_contention")
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrDuplicateInvoiceNumber = errors.New("duplicate_invoice_number")
)
