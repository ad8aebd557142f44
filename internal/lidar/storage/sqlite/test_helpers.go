package sqlite

import (
	"database/sql"
	"testing"

	"github.com/banshee-data/scanline/internal/testutil"
)

// setupRunStoreTestDB creates a migrated test database in a temp dir.
func setupRunStoreTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.NewTestDB(t).DB
}
