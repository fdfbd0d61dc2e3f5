package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, sync, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer sync()

		db, err := database.Connect(cmd.Context(), logger, connectionConfig(cfg))
		if err != nil {
			return errors.Wrap(err, "connect")
		}
		defer db.Close()

		return database.NewMigrationService(logger, migrationConfig(cfg)).Migrate(db, cfg.DatabaseName)
	},
}
