// Package tokenstore persists the access token, refresh token and cached user
// of one console client. It is a durable mirror of the in-memory session and
// never decides whether a session is authorized.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/rs/zerolog/log"
)

// Persisted keys
const (
	KeyUser         = "user"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Keys lists every persisted key in write order.
var Keys = []string{KeyUser, KeyAccessToken, KeyRefreshToken}

// ErrAbsent is returned by Load when there is no usable stored session.
var ErrAbsent = errors.New("no stored session")

// StorageParseError describes stored data that could not be decoded. Load
// logs it and reports ErrAbsent; it never reaches callers.
type StorageParseError struct {
	Key string
	Err error
}

func (e *StorageParseError) Error() string {
	return fmt.Sprintf("stored %s is corrupted: %v", e.Key, e.Err)
}

func (e *StorageParseError) Unwrap() error {
	return e.Err
}

// Record is the persisted triple.
type Record struct {
	User         sessions.StoredUser
	AccessToken  string
	RefreshToken string
}

// Session rebuilds the canonical session held by the record.
func (r Record) Session() sessions.Session {
	return r.User.Session(r.AccessToken, r.RefreshToken)
}

// Store is the durable key-value mirror of one client's session.
type Store interface {
	// Save writes all keys. Readers may briefly observe a mix of old and new values.
	Save(ctx context.Context, s sessions.Session) error
	// Load returns ErrAbsent when the user or access token is missing or unreadable.
	Load(ctx context.Context) (Record, error)
	// Clear removes all keys. It is idempotent and never fails; problems are logged.
	Clear(ctx context.Context)
}

// Provider returns the store of a given client.
type Provider func(clientID string) Store

func encodeRecord(s sessions.Session) (map[string]string, error) {
	raw, err := json.Marshal(sessions.NewStoredUser(s))
	if err != nil {
		return nil, fmt.Errorf("[tokenstore encodeRecord] marshal user: %w", err)
	}
	return map[string]string{
		KeyUser:         string(raw),
		KeyAccessToken:  s.AccessToken,
		KeyRefreshToken: s.RefreshToken,
	}, nil
}

// decodeRecord turns raw key values into a Record. A legacy flat user that
// carries its own token is accepted without a separate access token key,
// since the first console generation persisted nothing else.
func decodeRecord(values map[string]string) (Record, error) {
	rawUser := values[KeyUser]
	if rawUser == "" {
		return Record{}, ErrAbsent
	}

	var stored sessions.StoredUser
	if err := json.Unmarshal([]byte(rawUser), &stored); err != nil {
		parseErr := &StorageParseError{Key: KeyUser, Err: err}
		log.Warn().Err(parseErr).Msg("Ignoring stored session")
		return Record{}, ErrAbsent
	}

	access := values[KeyAccessToken]
	if access == "" && stored.IsLegacy() {
		access = stored.Token
	}
	if access == "" {
		return Record{}, ErrAbsent
	}

	return Record{
		User:         stored,
		AccessToken:  access,
		RefreshToken: values[KeyRefreshToken],
	}, nil
}
