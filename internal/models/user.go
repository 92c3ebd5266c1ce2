package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/otravers/otravers/backend/go-services/internal/apperr"
)

// Genre is the user's declared genre.
type Genre string

const (
	GenreMan   Genre = "MAN"
	GenreWoman Genre = "WOMAN"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidGenre reports whether g is a known genre.
func ValidGenre(g Genre) bool {
	return g == GenreMan || g == GenreWoman
}

// UserParams carries the raw attributes a User is built from.
type UserParams struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Genre        Genre
	BirthDate    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is an immutable application user. Build it with NewUser; serialize it
// with Public, which never carries the password hash.
type User struct {
	id           string
	email        string
	passwordHash string
	firstName    string
	lastName     string
	genre        Genre
	birthDate    time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser validates p and returns a User. Failures are Validation errors.
func NewUser(p UserParams) (User, error) {
	email := strings.TrimSpace(strings.ToLower(p.Email))
	if !ValidEmail(email) {
		return User{}, apperr.New(apperr.KindValidation, "Invalid Email Format")
	}
	if !ValidGenre(p.Genre) {
		return User{}, apperr.New(apperr.KindValidation, "Invalid genre: must be MAN or WOMAN")
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return User{}, apperr.New(apperr.KindValidation, "First and last name are required")
	}
	return User{
		id:           p.ID,
		email:        email,
		passwordHash: p.PasswordHash,
		firstName:    strings.TrimSpace(p.FirstName),
		lastName:     strings.TrimSpace(p.LastName),
		genre:        p.Genre,
		birthDate:    p.BirthDate,
		createdAt:    p.CreatedAt,
		updatedAt:    p.UpdatedAt,
	}, nil
}

func (u User) ID() string           { return u.id }
func (u User) Email() string        { return u.email }
func (u User) PasswordHash() string { return u.passwordHash }
func (u User) FirstName() string    { return u.firstName }
func (u User) LastName() string     { return u.lastName }
func (u User) Genre() Genre         { return u.genre }
func (u User) BirthDate() time.Time { return u.birthDate }
func (u User) CreatedAt() time.Time { return u.createdAt }
func (u User) UpdatedAt() time.Time { return u.updatedAt }

// Params returns the attributes of u, e.g. for persistence.
func (u User) Params() UserParams {
	return UserParams{
		ID:           u.id,
		Email:        u.email,
		PasswordHash: u.passwordHash,
		FirstName:    u.firstName,
		LastName:     u.lastName,
		Genre:        u.genre,
		BirthDate:    u.birthDate,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
	}
}

// WithPasswordHash returns a copy of u with a new hash.
func (u User) WithPasswordHash(hash string, at time.Time) User {
	u.passwordHash = hash
	u.updatedAt = at
	return u
}

// PublicUser is the serializable view of a user. It has no password field.
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Genre     Genre      `json:"genre,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Public returns the full profile view.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.id,
		Email:     u.email,
		FirstName: u.firstName,
		LastName:  u.lastName,
		Genre:     u.genre,
		BirthDate: timePtr(u.birthDate),
		CreatedAt: timePtr(u.createdAt),
		UpdatedAt: timePtr(u.updatedAt),
	}
}

// Summary returns the minimal view embedded in login responses.
func (u User) Summary() PublicUser {
	return PublicUser{
		ID:        u.id,
		Email:     u.email,
		FirstName: u.firstName,
		LastName:  u.lastName,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
