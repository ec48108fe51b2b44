package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(migrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	schema := string(body)

	assert.Contains(t, schema, "-- +goose Up")
	assert.Contains(t, schema, "lower(email)")
	assert.Contains(t, schema, "lower(username)")
	assert.True(t, strings.Contains(schema, "('USER'), ('ADMIN')"), "default roles must be seeded")
}

func TestRunMigrations_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, runMigrations(context.Background(), nil))
	assert.Equal(t, "migrations", gotDir)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	err := runMigrations(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
