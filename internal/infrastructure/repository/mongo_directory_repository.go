package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/repository/entity"
	"marketplace-session-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDirectoryRepository implements DirectoryRepository using MongoDB.
// Each named directory is one document holding the ordered entries.
type MongoDirectoryRepository struct {
	collection *mongo.Collection
	name       string
}

var _ ports.DirectoryRepository = (*MongoDirectoryRepository)(nil)

// NewMongoDirectoryRepository creates a new MongoDB directory repository
func NewMongoDirectoryRepository(db *mongo.Database, name string) *MongoDirectoryRepository {
	return &MongoDirectoryRepository{
		collection: db.Collection("store_directories"),
		name:       name,
	}
}

// EnsureIndexes creates the unique index on the directory name
func (r *MongoDirectoryRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create store directory index: %w", err)
	}
	return nil
}

// Load retrieves the directory. A missing document is an empty directory.
func (r *MongoDirectoryRepository) Load(ctx context.Context) ([]domain.StoreConfig, error) {
	var doc entity.MongoStoreDirectoryDoc
	filter := bson.M{"name": r.name}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return []domain.StoreConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store directory: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save replaces the whole directory in a single upsert
func (r *MongoDirectoryRepository) Save(ctx context.Context, stores []domain.StoreConfig) error {
	doc := entity.MongoStoreDirectoryDocFromDomain(r.name, stores)
	now := time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"name": r.name}
	update := bson.M{
		"$set": bson.M{
			"name":      doc.Name,
			"stores":    doc.Stores,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save store directory: %w", err)
	}

	return nil
}
