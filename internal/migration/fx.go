package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stridehq/stride/internal/config"
	"github.com/stridehq/stride/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if cfg.DBType == "postgres" {
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres installs (dev on sqlite) build the schema from
			// the gorm models instead of the SQL migrations.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsureBootstrapAdmin(conn, node, cfg.BootstrapAdmin)
	}),
)
