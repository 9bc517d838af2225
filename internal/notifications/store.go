package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

const collectionName = "notifications"

var errNotificationNotFound = domain.NotFound("Notification not found")

type document struct {
	ID          primitive.ObjectID      `bson:"_id,omitempty"`
	Title       string                  `bson:"title"`
	Message     string                  `bson:"message"`
	Type        domain.NotificationType `bson:"type"`
	RecipientID string                  `bson:"recipient"`
	IsRead      bool                    `bson:"isRead"`
	Data        bson.M                  `bson:"data,omitempty"`
	CreatedAt   time.Time               `bson:"createdAt"`
}

func toDocument(n domain.Notification) document {
	return document{
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Type,
		RecipientID: n.RecipientID,
		IsRead:      n.IsRead,
		Data:        bson.M(n.Data),
		CreatedAt:   n.CreatedAt,
	}
}

func (d document) toDomain() domain.Notification {
	return domain.Notification{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Message:     d.Message,
		Type:        d.Type,
		RecipientID: d.RecipientID,
		IsRead:      d.IsRead,
		Data:        map[string]any(d.Data),
		CreatedAt:   d.CreatedAt,
	}
}

// MongoStore keeps notifications as documents so the free-form data payload
// needs no schema.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(collectionName)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create notification index: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertMany(ctx context.Context, list []domain.Notification) error {
	if len(list) == 0 {
		return nil
	}
	docs := make([]any, 0, len(list))
	for _, n := range list {
		docs = append(docs, toDocument(n))
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// List returns the recipient's notifications, newest first. A limit of zero
// or below returns all of them.
func (s *MongoStore) List(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]domain.Notification, error) {
	filter := bson.M{"recipient": recipientID}
	if unreadOnly {
		filter["isRead"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	list := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		list = append(list, d.toDomain())
	}
	return list, nil
}

func (s *MongoStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient": recipientID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// MarkRead flags one of the recipient's notifications as read. Notifications
// addressed to someone else are reported as not found.
func (s *MongoStore) MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errNotificationNotFound
	}

	var d document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "recipient": recipientID},
		bson.M{"$set": bson.M{"isRead": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n := d.toDomain()
	return &n, nil
}

func (s *MongoStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient": recipientID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}
