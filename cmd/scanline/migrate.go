package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scanline/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate <" + strings.Join(db.MigrateActions, "|") + "> [version]",
		Short: "Manage the run store schema",
		Long: `Apply (up) or roll back (down) schema migrations, show the current
version (status), or force the recorded version after a failed migration
(force <version>).`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: db.MigrateActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			forceVersion := 0
			if action == "force" {
				if len(args) != 2 {
					return fmt.Errorf("migrate force needs a version")
				}
				v, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[1], err)
				}
				forceVersion = v
			} else if len(args) > 1 {
				return fmt.Errorf("migrate %s takes no version", action)
			}

			database, err := db.OpenDB(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return db.RunMigrate(database, db.MigrationsFS(), action, forceVersion, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "scanline.db", "SQLite run store")
	return cmd
}
