package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkordes/catalog-admin/migrations"
	"github.com/pkordes/catalog-admin/testutil"
)

// TestMain brings the test database schema up to date once for the whole
// package. Without TEST_DATABASE_URL every integration test skips itself.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run())
	}

	db := testutil.MustOpenSQLDB(dsn)
	if _, err := migrations.Up(context.Background(), db); err != nil {
		db.Close()
		log.Fatalf("TestMain: run migrations: %v", err)
	}
	db.Close()

	os.Exit(m.Run())
}
