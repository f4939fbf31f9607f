package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mscykler/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartsCollection = "carts"

func ConnectMongoDB(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client.Database(dbName), nil
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection(cartsCollection)}
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.M{"session_id": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

func (m *mongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"session_id": sessionID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		var decodeErr *bsoncodec.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, ErrCartCorrupt
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{"$set": cart}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}
	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
