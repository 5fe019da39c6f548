package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/clock"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/migration"
	"github.com/stridehq/stride/internal/observability"
	"github.com/stridehq/stride/internal/server"
	"github.com/stridehq/stride/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
