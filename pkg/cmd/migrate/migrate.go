package migrate

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/config"
	"github.com/mpapenbr/livetiming-relay/pkg/db/migrate"
	"github.com/mpapenbr/livetiming-relay/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migrationSourceUrl",
		"m",
		"",
		"url to migration files (default: migrations embedded in binary)")

	return cmd
}

func startMigration(ctx context.Context) error {
	logger := log.GetFromContext(ctx).Named("migrate")
	// wait for database
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		logger.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err = utils.WaitForTCP(postgresAddr, timeout); err != nil {
		logger.Fatal("database  not ready", log.ErrorField(err))
	}

	if config.MigrationSourceURL == "" {
		logger.Info("Using embedded migrations")
		err = migrate.MigrateDb(config.DB)
	} else {
		logger.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
		err = migrate.MigrateFromSource(config.MigrationSourceURL, config.DB)
	}
	if err != nil {
		logger.Error("migration failed", log.ErrorField(err))
		return err
	}
	logger.Info("Database is up to date")
	return nil
}
