package users

import (
	"context"
	"errors"
	"time"

	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEmailTaken is returned when a user with the same email already exists.
var ErrEmailTaken = apperr.New(apperr.KindConflict, "Email already exists")

// Repository defines persistence operations for users. Lookups return
// (nil, nil) when no user matches.
type Repository interface {
	Create(ctx context.Context, u models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	Update(ctx context.Context, u models.User) error
	Delete(ctx context.Context, id string) error
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	FirstName string    `bson:"firstName"`
	LastName  string    `bson:"lastName"`
	Genre     string    `bson:"genre"`
	BirthDate time.Time `bson:"birthDate,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toDocument(u models.User) userDocument {
	p := u.Params()
	return userDocument{
		ID:        p.ID,
		Email:     p.Email,
		Password:  p.PasswordHash,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Genre:     string(p.Genre),
		BirthDate: p.BirthDate,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (d userDocument) toUser() (*models.User, error) {
	u, err := models.NewUser(models.UserParams{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Genre:        models.Genre(d.Genre),
		BirthDate:    d.BirthDate,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the unique email index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_email_unique"),
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, u models.User) error {
	if _, err := r.col.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var d userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return d.toUser()
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":  hash,
		"updatedAt": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

// Update writes the profile fields of u. Email and password are not touched.
func (r *MongoRepository) Update(ctx context.Context, u models.User) error {
	d := toDocument(u)
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
		"firstName": d.FirstName,
		"lastName":  d.LastName,
		"genre":     d.Genre,
		"birthDate": d.BirthDate,
		"updatedAt": d.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}
