package database

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(seed bool) DatabaseConfig {
	return DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   ":memory:",
		Seed:         seed,
		DefaultGroup: "General Users",
		Logger:       quietLogger(),
	}
}

// newTestDB opens a fresh in-memory SQLite store.
func newTestDB(t *testing.T, seed bool) *SQLDatabase {
	t.Helper()
	store, err := NewSQLiteDatabase(testConfig(seed))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCount(t *testing.T, s *SQLDatabase, table string) int {
	t.Helper()
	n, err := s.CountTable(context.Background(), table)
	require.NoError(t, err)
	return n
}
