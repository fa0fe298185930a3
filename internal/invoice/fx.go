package invoice

import (
	"github.com/samatributa/invoicegen/internal/invoice/numbering"
	"github.com/samatributa/invoicegen/internal/invoice/repository"
	"github.com/samatributa/invoicegen/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		repository.New,
		func(r *repository.Repository) numbering.Lister { return r },
		numbering.NewAllocator,
		numbering.NewGenerator,
		service.NewService,
	),
)
