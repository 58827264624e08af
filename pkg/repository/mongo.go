package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Audit actions recorded against orders.
const (
	AuditOrderSubmitted     = "order_submitted"
	AuditOrderStatusChanged = "order_status_changed"
)

type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	service    string
}

func NewMongoRepository(cfg *config.MongoDBConfig, service string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		service:    service,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditLog is one entry in an order's history.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// RecordOrderEvent appends an audit entry for the given order.
func (m *MongoRepository) RecordOrderEvent(ctx context.Context, orderID, action string, data bson.M) error {
	entry := &AuditLog{
		Service:   m.service,
		Action:    action,
		EntityID:  orderID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// OrderHistory returns the newest audit entries for an order first.
func (m *MongoRepository) OrderHistory(ctx context.Context, orderID string, limit int64) ([]*AuditLog, error) {
	filter := bson.M{"entity_id": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}
	return logs, nil
}
