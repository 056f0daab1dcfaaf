package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicreport-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUser struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	MobileNumber string    `bson:"mobileNumber"`
	PasswordHash string    `bson:"password"`
	District     string    `bson:"district"`
	Municipality string    `bson:"municipality"`
	IsAdmin      bool      `bson:"isAdmin"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (u mongoUser) toModel() (*models.User, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("decode user id %q: %w", u.ID, err)
	}
	return &models.User{
		ID:           id,
		Username:     u.Username,
		MobileNumber: u.MobileNumber,
		PasswordHash: u.PasswordHash,
		District:     u.District,
		Municipality: u.Municipality,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

// MongoUserRepository stores users in a MongoDB collection
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a user repository on db
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(mongoUsersCollection)}
}

// Create inserts a new user. The unique username index turns a taken username into ErrDuplicate.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := mongoUser{
		ID:           user.ID.String(),
		Username:     user.Username,
		MobileNumber: user.MobileNumber,
		PasswordHash: user.PasswordHash,
		District:     user.District,
		Municipality: user.Municipality,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *MongoUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByUsername retrieves a user by username
func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// GetByIDs retrieves several users at once, keyed by ID
func (r *MongoUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	users := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc mongoUser
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		user, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	return users, cur.Err()
}

// UpdateLocation sets the district and municipality of a user
func (r *MongoUserRepository) UpdateLocation(ctx context.Context, id uuid.UUID, district, municipality string) (*models.User, error) {
	var doc mongoUser
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{
			"district":     district,
			"municipality": municipality,
			"updatedAt":    time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update user location: %w", err)
	}
	return doc.toModel()
}

// UpdatePasswordHash replaces the stored password hash
func (r *MongoUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return doc.toModel()
}
