package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mealsub/migrations"
	"github.com/dmitrymomot/mealsub/pkg/config"
	"github.com/dmitrymomot/mealsub/pkg/pg"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, _, log, err := loadApp()
			if err != nil {
				return err
			}

			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}

			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
