package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/models"
	"github.com/otravers/otravers/backend/go-services/internal/security"
)

// MinPasswordLength is the shortest password Register and ChangePassword accept.
const MinPasswordLength = 8

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Genre     models.Genre `json:"genre"`
	BirthDate time.Time    `json:"birthDate"`
}

// Service encapsulates user-related business logic
type Service struct {
	repo   Repository
	hasher *security.Hasher
	now    func() time.Time
}

func NewService(r Repository, h *security.Hasher) *Service {
	return &Service{repo: r, hasher: h, now: func() time.Time { return time.Now().UTC() }}
}

// Hasher exposes the password hasher so credential checks use the same cost.
func (s *Service) Hasher() *security.Hasher { return s.hasher }

// Register validates in, hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if len(in.Password) < MinPasswordLength {
		return models.User{}, apperr.New(apperr.KindValidation, "Password must be at least 8 characters")
	}
	now := s.now()
	u, err := models.NewUser(models.UserParams{
		ID:        uuid.NewString(),
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Genre:     in.Genre,
		BirthDate: in.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return models.User{}, err
	}

	existing, err := s.repo.FindByEmail(ctx, u.Email())
	if err != nil {
		return models.User{}, err
	}
	if existing != nil {
		return models.User{}, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindServiceFailure, "Internal server error", err)
	}
	u = u.WithPasswordHash(hash, now)
	if err := s.repo.Create(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail normalizes email the same way NewUser does before looking it up.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// UpdateInput carries the profile fields a user may change. Empty fields keep
// their current value.
type UpdateInput struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Genre     models.Genre `json:"genre"`
	BirthDate *time.Time   `json:"birthDate"`
}

// UpdateProfile applies in to user id. The result goes through NewUser, so
// the same validation as Register applies.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateInput) (models.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if u == nil {
		return models.User{}, apperr.ErrUserNotFound
	}
	p := u.Params()
	if in.FirstName != "" {
		p.FirstName = in.FirstName
	}
	if in.LastName != "" {
		p.LastName = in.LastName
	}
	if in.Genre != "" {
		p.Genre = in.Genre
	}
	if in.BirthDate != nil {
		p.BirthDate = *in.BirthDate
	}
	p.UpdatedAt = s.now()
	updated, err := models.NewUser(p)
	if err != nil {
		return models.User{}, err
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// ChangePassword replaces the password of user id after checking current.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.ErrUserNotFound
	}
	ok, err := s.hasher.Matches(u.PasswordHash(), current)
	if err != nil {
		return apperr.Wrap(apperr.KindServiceFailure, "Internal server error", err)
	}
	if !ok {
		return apperr.New(apperr.KindValidation, "Current password is incorrect")
	}
	if current == next {
		return apperr.New(apperr.KindValidation, "New password must be different from the current password")
	}
	if len(next) < MinPasswordLength {
		return apperr.New(apperr.KindValidation, "Password must be at least 8 characters")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Wrap(apperr.KindServiceFailure, "Internal server error", err)
	}
	return s.repo.UpdatePassword(ctx, id, hash, s.now())
}

// Delete removes user id; ErrUserNotFound when there is none. Sessions of
// the user stop refreshing once the user is gone.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
