package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/config"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// Identity is the user snapshot embedded in tokens at issuance.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// AccessClaims are carried by the short-lived access token.
type AccessClaims struct {
	UserID    string `json:"id"`
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by the refresh token.
type RefreshClaims struct {
	UserID    string `json:"id"`
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens. Each class has its own
// HMAC secret.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec from the JWT section of cfg.
func NewCodec(cfg *config.Config, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Codec{
		accessSecret:  []byte(cfg.JWT.AccessSecret),
		refreshSecret: []byte(cfg.JWT.RefreshSecret),
		accessTTL:     cfg.JWT.AccessTokenTTL,
		refreshTTL:    cfg.JWT.RefreshTokenTTL,
		now:           time.Now,
	}
	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = DefaultRefreshTTL
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// AccessTTL is the lifetime of issued access tokens.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the lifetime of issued refresh tokens.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccessToken signs an access token bound to sessionID.
func (c *Codec) IssueAccessToken(id Identity, sessionID string) (string, error) {
	claims := AccessClaims{
		UserID:           id.UserID,
		SessionID:        sessionID,
		Email:            id.Email,
		FirstName:        id.FirstName,
		LastName:         id.LastName,
		RegisteredClaims: c.registered(id.UserID, c.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

// IssueRefreshToken signs a refresh token bound to sessionID.
func (c *Codec) IssueRefreshToken(id Identity, sessionID string) (string, error) {
	claims := RefreshClaims{
		UserID:           id.UserID,
		SessionID:        sessionID,
		Email:            id.Email,
		RegisteredClaims: c.registered(id.UserID, c.refreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
}

// VerifyAccessToken returns the claims of a valid access token, or
// apperr.ErrTokenExpired / apperr.ErrTokenInvalid.
func (c *Codec) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(raw, c.accessSecret, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.UserID == "" {
		return nil, apperr.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefreshToken returns the claims of a valid refresh token, or
// apperr.ErrTokenExpired / apperr.ErrTokenInvalid.
func (c *Codec) VerifyRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(raw, c.refreshSecret, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.UserID == "" {
		return nil, apperr.ErrTokenInvalid
	}
	return claims, nil
}

// verify checks the signature before expiry, so a tampered token is always
// reported as invalid.
func (c *Codec) verify(raw string, secret []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.ErrTokenExpired
	default:
		return apperr.ErrTokenInvalid
	}
}
