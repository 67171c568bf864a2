// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/halvard/skriva/internal/index"
	"github.com/halvard/skriva/internal/storage"
	"github.com/halvard/skriva/internal/vault"
)

// Logger returns a logger that discards everything, for tests that only
// care about behavior.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// DB creates a temporary SQLite index that is automatically cleaned up.
func DB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "skriva-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FS creates a temporary directory with a storage.Provider rooted in it.
func FS(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Vault opens a fresh vault in a temporary directory.
func Vault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.Open(t.TempDir(), Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}
