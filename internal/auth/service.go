// Package auth orchestrates login, refresh and logout on top of the token
// codec and the session store. It is the only writer of sessions and the only
// issuer of tokens.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/models"
	"github.com/otravers/otravers/backend/go-services/internal/security"
	"github.com/otravers/otravers/backend/go-services/internal/sessions"
	"github.com/otravers/otravers/backend/go-services/internal/tokens"
	"github.com/otravers/otravers/backend/go-services/pkg/logger"
	"github.com/otravers/otravers/backend/go-services/pkg/metrics"
	"go.uber.org/zap"
)

// Users is the user collaborator the service reads from.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         models.PublicUser `json:"user"`
	SessionID    string            `json:"-"`
}

// RefreshResult carries the renewed access token. The refresh token is not rotated.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
}

type Service struct {
	users      Users
	store      sessions.Store
	codec      *tokens.Codec
	hasher     *security.Hasher
	sessionTTL time.Duration
	newID      func() string
	log        *zap.Logger
}

type Option func(*Service)

// WithSessionTTL overrides sessions.DefaultTTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func NewService(users Users, store sessions.Store, codec *tokens.Codec, hasher *security.Hasher, opts ...Option) *Service {
	s := &Service{
		users:      users,
		store:      store,
		codec:      codec,
		hasher:     hasher,
		sessionTTL: sessions.DefaultTTL,
		newID:      uuid.NewString,
		log:        logger.With(zap.String("component", "auth")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func identityOf(u *models.User) tokens.Identity {
	return tokens.Identity{
		UserID:    u.ID(),
		Email:     u.Email(),
		FirstName: u.FirstName(),
		LastName:  u.LastName(),
	}
}

func failure(err error) error {
	return apperr.Wrap(apperr.KindServiceFailure, "Internal server error", err)
}

// Login checks credentials, opens a session and issues both tokens. Tokens are
// only returned once the session has been stored.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { observe("login", err) }()

	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, failure(err)
	}
	if u == nil {
		return nil, apperr.ErrUserNotFound
	}
	ok, err := s.hasher.Matches(u.PasswordHash(), password)
	if err != nil {
		return nil, failure(err)
	}
	if !ok {
		return nil, apperr.ErrWrongPassword
	}

	sid := s.newID()
	id := identityOf(u)
	access, err := s.codec.IssueAccessToken(id, sid)
	if err != nil {
		return nil, failure(err)
	}
	refresh, err := s.codec.IssueRefreshToken(id, sid)
	if err != nil {
		return nil, failure(err)
	}

	sess := &sessions.Session{UserID: u.ID(), RefreshToken: sessions.Digest(refresh)}
	if err := s.store.Put(ctx, sid, sess, s.sessionTTL); err != nil {
		return nil, apperr.Wrap(apperr.KindSessionCreationFailed, apperr.ErrSessionCreation.Message, err)
	}

	s.log.Info("session opened", zap.String("user_id", u.ID()), zap.String("session_id", sid))
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         u.Summary(),
		SessionID:    sid,
	}, nil
}

// Refresh exchanges a refresh token for a new access token bound to the same
// session. Every token or session problem is reported as RefreshFailed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (res *RefreshResult, err error) {
	defer func() { observe("refresh", err) }()

	if refreshToken == "" {
		return nil, apperr.ErrRefreshFailed
	}
	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.log.Debug("refresh token rejected", zap.Error(err))
		return nil, apperr.ErrRefreshFailed
	}

	sess, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, failure(err)
	}
	if sess == nil || sess.UserID != claims.UserID {
		return nil, apperr.ErrRefreshFailed
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, failure(err)
	}
	if u == nil {
		return nil, apperr.ErrRefreshFailed
	}

	access, err := s.codec.IssueAccessToken(identityOf(u), claims.SessionID)
	if err != nil {
		return nil, failure(err)
	}
	return &RefreshResult{AccessToken: access}, nil
}

// Logout deletes the session. It never fails: a record the store could not
// delete will still expire on its own.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.log.Warn("session delete failed", zap.String("session_id", sessionID), zap.Error(err))
		observe("logout", failure(err))
		return
	}
	observe("logout", nil)
}

// Profile returns the public view of the user.
func (s *Service) Profile(ctx context.Context, userID string) (models.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, failure(err)
	}
	if u == nil {
		return models.PublicUser{}, apperr.ErrUserNotFound
	}
	return u.Public(), nil
}

func observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(apperr.From(err).Kind))
	}
	metrics.AuthOperations.WithLabelValues(op, outcome).Inc()
}
