// Package currency derives the missing side of USD/INR line amounts and
// computes invoice totals. Everything here is pure and exact; rounding to
// cents happens only when totals are stored.
package currency

import (
	"github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DeriveAmounts fills INR from USD when USD is present, otherwise USD from
// INR. An item with neither amount gets zero in both.
func DeriveAmounts(item domain.LineItem, rate decimal.Decimal) (domain.LineItem, error) {
	return DeriveAmountsFrom(item, rate, domain.CurrencyUSD)
}

// DeriveAmountsFrom is DeriveAmounts with primary deciding which amount
// drives when both are present.
func DeriveAmountsFrom(item domain.LineItem, rate decimal.Decimal, primary domain.Currency) (domain.LineItem, error) {
	if rate.Sign() <= 0 {
		return domain.LineItem{}, domain.ErrInvalidExchangeRate
	}

	usd, inr := item.AmountUSD, item.AmountINR
	switch {
	case primary == domain.CurrencyINR && inr.Valid:
		item.AmountUSD = decimal.NewNullDecimal(inr.Decimal.Div(rate))
	case usd.Valid:
		item.AmountINR = decimal.NewNullDecimal(usd.Decimal.Mul(rate))
	case inr.Valid:
		item.AmountUSD = decimal.NewNullDecimal(inr.Decimal.Div(rate))
	default:
		item.AmountUSD = decimal.NewNullDecimal(decimal.Zero)
		item.AmountINR = decimal.NewNullDecimal(decimal.Zero)
	}
	return item, nil
}

// ComputeTotals sums USD and INR independently over every sub-service.
// Absent amounts count as zero. Tax is taxRatePercent of each subtotal.
func ComputeTotals(groups []domain.ServiceGroup, taxRatePercent decimal.Decimal) domain.Totals {
	subtotalUSD, subtotalINR := decimal.Zero, decimal.Zero
	for _, group := range groups {
		for _, item := range group.SubServices {
			if item.AmountUSD.Valid {
				subtotalUSD = subtotalUSD.Add(item.AmountUSD.Decimal)
			}
			if item.AmountINR.Valid {
				subtotalINR = subtotalINR.Add(item.AmountINR.Decimal)
			}
		}
	}

	taxUSD := subtotalUSD.Mul(taxRatePercent).Div(hundred)
	taxINR := subtotalINR.Mul(taxRatePercent).Div(hundred)

	return domain.Totals{
		SubtotalUSD:  subtotalUSD,
		SubtotalINR:  subtotalINR,
		TaxAmountUSD: taxUSD,
		TaxAmountINR: taxINR,
		TotalUSD:     subtotalUSD.Add(taxUSD),
		TotalINR:     subtotalINR.Add(taxINR),
	}
}

// Recalculate derives every item and recomputes totals from scratch. The
// input slice is not modified.
func Recalculate(groups []domain.ServiceGroup, taxRatePercent, rate decimal.Decimal, primary domain.Currency) ([]domain.ServiceGroup, domain.Totals, error) {
	if rate.Sign() <= 0 {
		return nil, domain.Totals{}, domain.ErrInvalidExchangeRate
	}

	out := make([]domain.ServiceGroup, len(groups))
	for i, group := range groups {
		subs := make([]domain.LineItem, len(group.SubServices))
		for j, item := range group.SubServices {
			derived, err := DeriveAmountsFrom(item, rate, primary)
			if err != nil {
				return nil, domain.Totals{}, err
			}
			subs[j] = derived
		}
		group.SubServices = subs
		out[i] = group
	}
	return out, ComputeTotals(out, taxRatePercent), nil
}
