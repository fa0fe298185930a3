package numbering

import (
	"context"
	"time"

	"github.com/samatributa/invoicegen/internal/config"
	"github.com/samatributa/invoicegen/internal/invoice/format"
)

// Generated is an allocated invoice number and its parts.
type Generated struct {
	Number string
	Prefix string
	Serial int64
}

type Generator struct {
	allocator *Allocator
	cfg       *config.InvoicingConfigHolder
}

func NewGenerator(allocator *Allocator, cfg *config.InvoicingConfigHolder) *Generator {
	return &Generator{allocator: allocator, cfg: cfg}
}

// Generate derives the prefix from customerName, allocates its next serial
// and renders PREFIX-YYYYMMDD-SSSS for date.
func (g *Generator) Generate(ctx context.Context, customerName string, date time.Time, commit bool) (Generated, error) {
	numbering := g.cfg.Get().Numbering
	prefix := g.rule().Derive(customerName)

	serial, err := g.allocator.Allocate(ctx, prefix, commit)
	if err != nil {
		return Generated{}, err
	}

	number, err := format.FormatInvoiceNumber(format.TemplateForWidth(numbering.SerialWidth), prefix, date, serial)
	if err != nil {
		return Generated{}, err
	}
	return Generated{Number: number, Prefix: prefix, Serial: serial}, nil
}

// UpdatePrefix relabels an issued number for a renamed customer. The date
// and serial are kept and no serial is allocated.
func (g *Generator) UpdatePrefix(number, customerName string) string {
	return g.rule().Relabel(number, customerName)
}

func (g *Generator) rule() format.PrefixRule {
	numbering := g.cfg.Get().Numbering
	return format.PrefixRule{Length: numbering.PrefixLength, Fallback: numbering.DefaultPrefix}
}
