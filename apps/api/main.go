package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/samatributa/invoicegen/internal/clock"
	"github.com/samatributa/invoicegen/internal/config"
	"github.com/samatributa/invoicegen/internal/counter"
	"github.com/samatributa/invoicegen/internal/invoice"
	"github.com/samatributa/invoicegen/internal/migration"
	"github.com/samatributa/invoicegen/internal/observability"
	"github.com/samatributa/invoicegen/internal/server"
	"github.com/samatributa/invoicegen/pkg/db"
	"github.com/samatributa/invoicegen/pkg/kv"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		kv.Module,
		clock.Module,
		migration.Module,

		counter.Module,
		invoice.Module,
		// No scheduler: bin purging runs in apps/worker.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
