package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemorerev/client/internal/database"
	"github.com/onemorerev/client/internal/storage"
	gormstorage "github.com/onemorerev/client/internal/storage/gorm"
	"github.com/onemorerev/client/internal/storage/memory"
	"github.com/onemorerev/client/pkg/core"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstorage.Backend)(nil)
)

func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()

	m := database.NewManager(zerolog.Nop())
	require.NoError(t, m.OpenSqlite(t.TempDir()+"/snap.db"))

	out := map[string]storage.Backend{
		"memory": memory.New(),
		"sqlite": gormstorage.New(m),
	}
	for _, b := range out {
		require.NoError(t, b.Init())
		b := b
		t.Cleanup(func() { _ = b.Close() })
	}
	return out
}

func TestBackends_SaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := []core.Project{{ID: "p1", Title: "Logo"}, {ID: "p2", Title: "Poster"}}
			require.NoError(t, b.Save(ctx, storage.KindProjects, "all", want))

			var got []core.Project
			at, err := b.Load(ctx, storage.KindProjects, "all", &got)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.WithinDuration(t, time.Now(), at, time.Minute)
		})
	}
}

func TestBackends_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Save(ctx, storage.KindRevision, "r1", core.Revision{ID: "r1", Status: core.StatusPrepare}))
			require.NoError(t, b.Save(ctx, storage.KindRevision, "r1", core.Revision{ID: "r1", Status: core.StatusSubmitted}))

			var got core.Revision
			_, err := b.Load(ctx, storage.KindRevision, "r1", &got)
			require.NoError(t, err)
			assert.Equal(t, core.StatusSubmitted, got.Status)
		})
	}
}

func TestBackends_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var got core.Revision
			_, err := b.Load(ctx, storage.KindRevision, "missing", &got)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestBackends_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Save(ctx, storage.KindProject, "x", core.Project{ID: "x"}))

			var rev core.Revision
			_, err := b.Load(ctx, storage.KindRevision, "x", &rev)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}
