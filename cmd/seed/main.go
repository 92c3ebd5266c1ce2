// Command seed creates a user account directly in MongoDB, for local setups
// and smoke tests.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/config"
	"github.com/otravers/otravers/backend/go-services/internal/database"
	"github.com/otravers/otravers/backend/go-services/internal/models"
	"github.com/otravers/otravers/backend/go-services/internal/security"
	"github.com/otravers/otravers/backend/go-services/internal/users"
	"github.com/otravers/otravers/backend/go-services/pkg/logger"
)

func main() {
	email := flag.String("email", os.Getenv("SEED_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "account password")
	first := flag.String("first", "Admin", "first name")
	last := flag.String("last", "User", "last name")
	genre := flag.String("genre", string(models.GenreMan), "MAN or WOMAN")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := users.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection("users"))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("failed to create user indexes: %v", err)
	}
	svc := users.NewService(repo, security.NewHasher(cfg.Security.BcryptCost))

	u, err := svc.Register(ctx, users.RegisterInput{
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
		Genre:     models.Genre(*genre),
	})
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		logger.Infof("user %s already exists", *email)
	case err != nil:
		logger.Fatalf("seed failed: %s", apperr.From(err).Message)
	default:
		logger.Infof("created user %s (%s)", u.Email(), u.ID())
	}
}
