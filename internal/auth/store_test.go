package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemorerev/client/internal/api"
	"github.com/onemorerev/client/internal/api/apitest"
	"github.com/onemorerev/client/pkg/core"
)

var _ SessionClient = (*api.Client)(nil)

func newBackend(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser(core.User{ID: "u1", Email: "kim@example.com", Name: "Kim", Role: "client"}, "secret")
	return srv
}

func TestLoad_MissingFileIsUnauthenticated(t *testing.T) {
	s := NewStore(t.TempDir())

	st, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))

	_, err := NewStore(dir).Load(context.Background())
	assert.Error(t, err)
}

func TestLogin_PersistsSession(t *testing.T) {
	srv := newBackend(t)
	dir := t.TempDir()
	ctx := context.Background()

	st, err := NewStore(dir).Login(ctx, api.New(srv.URL), "kim@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "Kim", st.User.Name)
	assert.NotEmpty(t, st.Cookies)

	// A fresh process restores the cookies and still has a valid session.
	store := NewStore(dir)
	client := api.New(srv.URL)
	restored, err := store.Restore(ctx, client)
	require.NoError(t, err)
	assert.True(t, restored.Authenticated)

	user, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	got, err := store.RequireUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", got.Email)
}

func TestLogin_FailureKeepsState(t *testing.T) {
	srv := newBackend(t)
	s := NewStore(t.TempDir())
	ctx := context.Background()

	_, err := s.Login(ctx, api.New(srv.URL), "kim@example.com", "nope")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	_, err = s.RequireUser(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRefresh_ExpiredSession(t *testing.T) {
	srv := newBackend(t)
	dir := t.TempDir()
	ctx := context.Background()

	s := NewStore(dir)
	_, err := s.Login(ctx, api.New(srv.URL), "kim@example.com", "secret")
	require.NoError(t, err)

	// Server-side logout from another client invalidates the stored cookie.
	other := api.New(srv.URL)
	_, err = s.Restore(ctx, other)
	require.NoError(t, err)
	require.NoError(t, other.Logout(ctx))

	st, err := s.Refresh(ctx, api.New(srv.URL))
	require.Error(t, err)
	assert.False(t, st.Authenticated)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated)
}

func TestRefresh_Success(t *testing.T) {
	srv := newBackend(t)
	s := NewStore(t.TempDir())
	ctx := context.Background()

	client := api.New(srv.URL)
	_, err := s.Login(ctx, client, "kim@example.com", "secret")
	require.NoError(t, err)

	st, err := s.Refresh(ctx, client)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "Kim", st.User.Name)
}

type failingLogout struct {
	*api.Client
}

func (failingLogout) Logout(context.Context) error {
	return errors.New("network down")
}

func TestLogout_AlwaysClearsLocalState(t *testing.T) {
	srv := newBackend(t)
	s := NewStore(t.TempDir())
	ctx := context.Background()

	client := api.New(srv.URL)
	_, err := s.Login(ctx, client, "kim@example.com", "secret")
	require.NoError(t, err)

	err = s.Logout(ctx, failingLogout{client})
	require.Error(t, err)

	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.Empty(t, st.Cookies)
}
