package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// DefaultTTL is how long a login session lives in the store.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidTTL is returned by Put for a non-positive ttl.
var ErrInvalidTTL = errors.New("sessions: ttl must be positive")

// Session represents one authenticated login. Its presence in the Store is what
// makes tokens bound to ID usable.
type Session struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"userId" json:"userId"`
	// RefreshToken holds a digest of the refresh token issued at login. It is
	// kept for auditing and is not consulted when authorizing requests.
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Store persists sessions keyed by session id.
//
// Get returns (nil, nil) when the session does not exist or has expired.
// Delete of an unknown id succeeds.
type Store interface {
	Put(ctx context.Context, id string, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Digest returns the hex SHA-256 of a token for storage in Session.RefreshToken.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// stamp fills the timestamps Put is responsible for.
func stamp(id string, s *Session, ttl time.Duration, now time.Time) {
	s.ID = id
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.ExpiresAt = now.Add(ttl)
}
