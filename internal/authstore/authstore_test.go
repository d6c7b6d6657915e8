package authstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/foodtrack/pkg/core/types"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u_1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoadClear(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), "nested", "session.json"))
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	name := "Ada"
	creds := types.Credentials{Token: "opaque-token", User: types.User{ID: "u_1", Name: &name, Email: "ada@example.com"}}
	require.NoError(t, store.Save(creds))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, creds, *got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStore_CorruptFileIsRemoved(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestStore_ExpiredTokenIsLoggedOut(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store := New(filepath.Join(t.TempDir(), "session.json"))
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(types.Credentials{Token: signed(t, now.Add(time.Hour)), User: types.User{ID: "u_1"}}))
	_, err := store.Load()
	require.NoError(t, err)

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, statErr := os.Stat(store.Path())
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestStore_SaveRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	assert.Error(t, New(filepath.Join(t.TempDir(), "s.json")).Save(types.Credentials{}))
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := TokenExpiry(signed(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiry("not-a-jwt")
	assert.False(t, ok)
}
