package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpenSqlite_File(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "test.db")

	require.NoError(t, m.OpenSqlite(path))
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Migrate(&widget{}))
	require.NoError(t, m.DB.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, m.DB.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.FileExists(t, path)
}

func TestMigrate_NotOpen(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Migrate(&widget{}))
	assert.NoError(t, m.Close())
}

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.OpenPostgres(""))
}
