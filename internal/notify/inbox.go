package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Domenick1991/staybooking/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultListLimit = 50

type Inbox interface {
	Save(ctx context.Context, n domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

var (
	_ Inbox = (*MongoInbox)(nil)
	_ Inbox = (*MemoryInbox)(nil)
)

type MongoInbox struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo opens the inbox collection and makes sure its index exists.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoInbox, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	inbox := &MongoInbox{client: client, collection: client.Database(database).Collection(collection)}
	_, err = inbox.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create inbox index: %w", err)
	}
	return inbox, nil
}

func (i *MongoInbox) Close(ctx context.Context) error {
	return i.client.Disconnect(ctx)
}

// Save upserts by id, so a redelivered event does not duplicate the entry.
func (i *MongoInbox) Save(ctx context.Context, n domain.Notification) error {
	_, err := i.collection.UpdateOne(ctx,
		bson.M{"_id": n.ID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":    n.UserID,
			"booking_id": n.BookingID,
			"event_id":   n.EventID,
			"type":       n.Type,
			"title":      n.Title,
			"body":       n.Body,
			"read":       n.Read,
			"created_at": n.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (i *MongoInbox) ListByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := i.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]domain.Notification, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

func (i *MongoInbox) MarkRead(ctx context.Context, userID, id string) error {
	res, err := i.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MemoryInbox backs the inbox when mongo is not configured.
type MemoryInbox struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{items: make(map[string]domain.Notification)}
}

func (i *MemoryInbox) Save(_ context.Context, n domain.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.items[n.ID]; !ok {
		i.items[n.ID] = n
	}
	return nil
}

func (i *MemoryInbox) ListByUser(_ context.Context, userID string, limit int64) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	i.mu.RLock()
	out := make([]domain.Notification, 0)
	for _, n := range i.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	i.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (i *MemoryInbox) MarkRead(_ context.Context, userID, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, ok := i.items[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	n.Read = true
	i.items[id] = n
	return nil
}
