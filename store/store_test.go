package store

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/padraicbc/demoapi/db"
	"github.com/padraicbc/demoapi/models"
)

// openTestDB connects to TEST_DATABASE_URL and empties both tables.
// Tests are skipped when no database is configured.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	bdb := db.Open(dsn, false)
	t.Cleanup(func() { _ = bdb.Close() })

	require.NoError(t, bdb.PingContext(ctx))
	require.NoError(t, db.CreateTables(ctx, bdb))
	_, err := bdb.ExecContext(ctx, `TRUNCATE "demo", "user" RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return bdb
}

func fakeUser() *models.User {
	return &models.User{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
	}
}
