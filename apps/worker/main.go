package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/samatributa/invoicegen/internal/clock"
	"github.com/samatributa/invoicegen/internal/config"
	"github.com/samatributa/invoicegen/internal/counter"
	"github.com/samatributa/invoicegen/internal/invoice"
	"github.com/samatributa/invoicegen/internal/migration"
	"github.com/samatributa/invoicegen/internal/observability"
	"github.com/samatributa/invoicegen/internal/scheduler"
	"github.com/samatributa/invoicegen/pkg/db"
	"github.com/samatributa/invoicegen/pkg/kv"
	"go.uber.org/fx"
)

func main() {
	fx.New(options()).Run()
}

func options() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		// Worker nodes use a separate snowflake node id from the API.
		fx.Provide(RegisterSnowflake),
		db.Module,
		kv.Module,
		clock.Module,
		// A worker may start before any API node on a fresh database.
		migration.Module,

		// invoice service is required by the purge job
		counter.Module,
		invoice.Module,

		// No server module!
		scheduler.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
