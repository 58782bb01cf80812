package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFiles expects the same versions for both dialects, each with up and down sections.
func TestFiles(t *testing.T) {
	expectedDialects := map[string]goose.Dialect{
		"mysql": goose.DialectMySQL,
		"pgx":   goose.DialectPostgres,
	}
	for driverName, expectedDialect := range expectedDialects {
		files, dialect, err := Files(driverName)
		require.NoError(t, err)
		assert.Equal(t, expectedDialect, dialect)

		names, err := fs.Glob(files, "*.sql")
		require.NoError(t, err)
		assert.Equal(t, []string{"00001_create_users.sql", "00002_create_address.sql"}, names, driverName)
		for _, name := range names {
			content, err := fs.ReadFile(files, name)
			require.NoError(t, err)
			assert.True(t, strings.Contains(string(content), "-- +goose Up"), name)
			assert.True(t, strings.Contains(string(content), "-- +goose Down"), name)
		}
	}
}

func TestFilesUnknownDriver(t *testing.T) {
	_, _, err := Files("sqlite")
	assert.Error(t, err)
}
