package db

import (
	"fmt"
	"io"
	"io/fs"
)

// MigrateActions lists the actions RunMigrate accepts.
var MigrateActions = []string{"up", "down", "status", "force"}

// RunMigrate performs one migrate action against database and reports the
// outcome to out. force requires a target version.
func RunMigrate(database *DB, migrations fs.FS, action string, forceVersion int, out io.Writer) error {
	switch action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "All migrations applied")

	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back one migration")

	case "status":
		// reported below

	case "force":
		if forceVersion < 0 {
			return fmt.Errorf("force requires a version >= 0, got %d", forceVersion)
		}
		if err := database.MigrateForce(migrations, forceVersion); err != nil {
			return err
		}
		fmt.Fprintf(out, "Migration version forced to %d\n", forceVersion)

	default:
		return fmt.Errorf("unknown migrate action %q (want one of %v)", action, MigrateActions)
	}

	status, err := database.GetMigrationStatus(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (latest %d, dirty: %v)\n", status.CurrentVersion, status.LatestVersion, status.Dirty)
	if status.Dirty {
		fmt.Fprintln(out, "WARNING: database is in a dirty state; inspect it, then run 'scanline migrate force <version>'")
	} else if status.Pending() {
		fmt.Fprintf(out, "%d migration(s) pending; run 'scanline migrate up'\n", status.LatestVersion-status.CurrentVersion)
	}
	return nil
}
