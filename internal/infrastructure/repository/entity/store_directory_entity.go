package entity

import (
	"time"

	"marketplace-session-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoStoreDirectoryDoc represents a named store directory in MongoDB
type MongoStoreDirectoryDoc struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty"`
	Name      string                `bson:"name"`
	Stores    []MongoStoreConfigDoc `bson:"stores"`
	CreatedAt time.Time             `bson:"createdAt"`
	UpdatedAt time.Time             `bson:"updatedAt"`
}

// MongoStoreConfigDoc represents one directory entry, stored in order
type MongoStoreConfigDoc struct {
	StoreID     string `bson:"storeId,omitempty"`
	BaseURL     string `bson:"baseUrl"`
	Platform    string `bson:"platform"`
	DisplayName string `bson:"displayName,omitempty"`
	LogoIcon    string `bson:"logoIcon,omitempty"`
	LogoColor   string `bson:"logoColor,omitempty"`
}

// ToDomain converts the MongoDB document to the ordered directory
func (d *MongoStoreDirectoryDoc) ToDomain() []domain.StoreConfig {
	stores := make([]domain.StoreConfig, 0, len(d.Stores))
	for _, s := range d.Stores {
		stores = append(stores, domain.StoreConfig{
			StoreID:     s.StoreID,
			BaseURL:     s.BaseURL,
			Platform:    domain.Platform(s.Platform),
			DisplayName: s.DisplayName,
			LogoIcon:    s.LogoIcon,
			LogoColor:   s.LogoColor,
		})
	}
	return stores
}

// MongoStoreDirectoryDocFromDomain converts a directory to a MongoDB document
func MongoStoreDirectoryDocFromDomain(name string, stores []domain.StoreConfig) *MongoStoreDirectoryDoc {
	doc := &MongoStoreDirectoryDoc{
		Name:   name,
		Stores: make([]MongoStoreConfigDoc, 0, len(stores)),
	}
	for _, s := range stores {
		doc.Stores = append(doc.Stores, MongoStoreConfigDoc{
			StoreID:     s.StoreID,
			BaseURL:     s.BaseURL,
			Platform:    string(s.Platform),
			DisplayName: s.DisplayName,
			LogoIcon:    s.LogoIcon,
			LogoColor:   s.LogoColor,
		})
	}
	return doc
}
