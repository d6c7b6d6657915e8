// Package authstore persists the logged-in user between runs.
package authstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vango-go/foodtrack/pkg/core/types"
)

// ErrNotLoggedIn is returned when no usable credentials are stored.
var ErrNotLoggedIn = errors.New("not logged in")

// Store keeps credentials in a single JSON file.
type Store struct {
	path string
	now  func() time.Time
}

// New returns a store backed by path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

type record struct {
	Token   string     `json:"token"`
	User    types.User `json:"user"`
	SavedAt time.Time  `json:"saved_at"`
}

// Save writes creds, replacing any stored login. The file is readable by the
// owner only.
func (s *Store) Save(creds types.Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return errors.New("authstore: empty token")
	}
	data, err := json.MarshalIndent(record{Token: creds.Token, User: creds.User, SavedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("authstore: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("authstore: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("authstore: write: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("authstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("authstore: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("authstore: write: %w", err)
	}
	return nil
}

// Load returns the stored credentials. A corrupt file or an expired token is
// removed and reported as ErrNotLoggedIn.
func (s *Store) Load() (*types.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("authstore: read: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Token == "" || rec.User.ID == "" {
		_ = s.Clear()
		return nil, ErrNotLoggedIn
	}
	if exp, ok := TokenExpiry(rec.Token); ok && !exp.After(s.now()) {
		_ = s.Clear()
		return nil, ErrNotLoggedIn
	}
	return &types.Credentials{Token: rec.Token, User: rec.User}, nil
}

// Clear removes the stored login. It is not an error if none exists.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("authstore: remove: %w", err)
	}
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature;
// the backend remains the authority. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
