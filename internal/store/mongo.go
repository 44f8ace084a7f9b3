// ABOUTME: MongoDB implementation of the Store interface using the official mongo-driver
// ABOUTME: Document shapes match the original bot's members/embedstates/messagestats collections

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. Kept identical to the collections an existing deployment already has.
const (
	membersCollection    = "members"
	embedStateCollection = "embedstates"
	activityCollection   = "messagestats"
)

// mongoCloseTimeout bounds Disconnect during shutdown.
const mongoCloseTimeout = 10 * time.Second

type memberDoc struct {
	UserID    string    `bson:"userId"`
	Done      bool      `bson:"done"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type embedStateDoc struct {
	ID        string    `bson:"_id"`
	ChannelID string    `bson:"channelId,omitempty"`
	MessageID string    `bson:"messageId,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type activityDoc struct {
	GuildID   string    `bson:"guildId"`
	UserID    string    `bson:"userId"`
	WeekKey   string    `bson:"weekKey"`
	Count     int64     `bson:"count"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore implements the Store interface using MongoDB
type MongoStore struct {
	client   *mongo.Client
	members  *mongo.Collection
	embed    *mongo.Collection
	activity *mongo.Collection
	logger   *slog.Logger
	now      func() time.Time
}

// NewMongoStore connects to MongoDB, verifies the connection, and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	logger := slog.Default().With("component", "store")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		members:  db.Collection(membersCollection),
		embed:    db.Collection(embedStateCollection),
		activity: db.Collection(activityCollection),
		logger:   logger,
		now:      time.Now,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	logger.Info("MongoDB store initialized", "database", database)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("members index: %w", err)
	}

	_, err = s.activity.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "guildId", Value: 1}, {Key: "weekKey", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "guildId", Value: 1}, {Key: "weekKey", Value: 1}, {Key: "count", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("activity indexes: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB
func (s *MongoStore) Close() error {
	s.logger.Info("closing MongoDB store")
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// UpsertMember creates the member or overwrites its completion flag.
func (s *MongoStore) UpsertMember(ctx context.Context, actorID string, done bool) error {
	now := s.now().UTC()
	update := bson.M{
		"$set":         bson.M{"done": done, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := s.members.UpdateOne(ctx, memberFilter(actorID), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting member: %w", err)
	}
	return nil
}

// SetMemberDone updates an existing member.
func (s *MongoStore) SetMemberDone(ctx context.Context, actorID string, done bool) (bool, error) {
	update := bson.M{"$set": bson.M{"done": done, "updatedAt": s.now().UTC()}}

	res, err := s.members.UpdateOne(ctx, memberFilter(actorID), update)
	if err != nil {
		return false, fmt.Errorf("updating member: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// SetAllDone sets the completion flag on every member.
func (s *MongoStore) SetAllDone(ctx context.Context, done bool) (int64, error) {
	filter := bson.M{"done": bson.M{"$ne": done}}
	update := bson.M{"$set": bson.M{"done": done, "updatedAt": s.now().UTC()}}

	res, err := s.members.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("updating members: %w", err)
	}
	return res.ModifiedCount, nil
}

// RemoveMember deletes a member.
func (s *MongoStore) RemoveMember(ctx context.Context, actorID string) (bool, error) {
	res, err := s.members.DeleteOne(ctx, memberFilter(actorID))
	if err != nil {
		return false, fmt.Errorf("deleting member: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// GetMember retrieves a member by actor ID.
func (s *MongoStore) GetMember(ctx context.Context, actorID string) (*Member, error) {
	var doc memberDoc
	err := s.members.FindOne(ctx, memberFilter(actorID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding member: %w", err)
	}
	return doc.toMember(), nil
}

// ListMembers returns members in insertion order.
func (s *MongoStore) ListMembers(ctx context.Context) ([]*Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "userId", Value: 1}})

	cursor, err := s.members.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}

	var docs []memberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}

	members := make([]*Member, 0, len(docs))
	for i := range docs {
		members = append(members, docs[i].toMember())
	}
	return members, nil
}

// MemberExists reports whether the actor is on the roster.
func (s *MongoStore) MemberExists(ctx context.Context, actorID string) (bool, error) {
	n, err := s.members.CountDocuments(ctx, memberFilter(actorID), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("counting member: %w", err)
	}
	return n > 0, nil
}

// GetEmbedState returns the singleton embed state.
func (s *MongoStore) GetEmbedState(ctx context.Context) (*EmbedState, error) {
	var doc embedStateDoc
	err := s.embed.FindOne(ctx, bson.M{"_id": EmbedStateID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding embed state: %w", err)
	}
	return &EmbedState{
		ID:        doc.ID,
		ChannelID: doc.ChannelID,
		MessageID: doc.MessageID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// SaveEmbedState writes the singleton embed state.
func (s *MongoStore) SaveEmbedState(ctx context.Context, state *EmbedState) error {
	now := s.now().UTC()
	update := bson.M{
		"$set": bson.M{
			"channelId": state.ChannelID,
			"messageId": state.MessageID,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := s.embed.UpdateOne(ctx, bson.M{"_id": EmbedStateID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("saving embed state: %w", err)
	}
	return nil
}

// IncrementActivity atomically adds one to the counter.
func (s *MongoStore) IncrementActivity(ctx context.Context, key ActivityKey) (int64, error) {
	now := s.now().UTC()
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc activityDoc
	if err := s.activity.FindOneAndUpdate(ctx, activityFilter(key), update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("incrementing activity: %w", err)
	}
	return doc.Count, nil
}

// GetActivity returns the counter value or zero.
func (s *MongoStore) GetActivity(ctx context.Context, key ActivityKey) (int64, error) {
	var doc activityDoc
	err := s.activity.FindOne(ctx, activityFilter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("finding activity: %w", err)
	}
	return doc.Count, nil
}

// TopActivity lists the highest counters for a scope and period.
func (s *MongoStore) TopActivity(ctx context.Context, scopeID, periodKey string, limit int) ([]*ActivityCounter, error) {
	opts := options.Find().SetSort(activitySort()).SetLimit(int64(limit))
	return s.findCounters(ctx, periodFilter(scopeID, periodKey), opts)
}

// ListActivity lists every counter for a scope and period.
func (s *MongoStore) ListActivity(ctx context.Context, scopeID, periodKey string) ([]*ActivityCounter, error) {
	opts := options.Find().SetSort(activitySort())
	return s.findCounters(ctx, periodFilter(scopeID, periodKey), opts)
}

func (s *MongoStore) findCounters(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*ActivityCounter, error) {
	cursor, err := s.activity.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}

	var docs []activityDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding activity: %w", err)
	}

	counters := make([]*ActivityCounter, 0, len(docs))
	for _, d := range docs {
		counters = append(counters, &ActivityCounter{
			ScopeID:   d.GuildID,
			ActorID:   d.UserID,
			PeriodKey: d.WeekKey,
			Count:     d.Count,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return counters, nil
}

// ResetActivity deletes counters for one scope and period.
func (s *MongoStore) ResetActivity(ctx context.Context, scopeID, periodKey string) (int64, error) {
	res, err := s.activity.DeleteMany(ctx, periodFilter(scopeID, periodKey))
	if err != nil {
		return 0, fmt.Errorf("resetting activity: %w", err)
	}

	s.logger.Info("reset activity counters", "scope_id", scopeID, "period_key", periodKey, "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

func (d *memberDoc) toMember() *Member {
	return &Member{
		ActorID:   d.UserID,
		Done:      d.Done,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func memberFilter(actorID string) bson.M {
	return bson.M{"userId": actorID}
}

func activityFilter(key ActivityKey) bson.M {
	return bson.M{"guildId": key.ScopeID, "userId": key.ActorID, "weekKey": key.PeriodKey}
}

func periodFilter(scopeID, periodKey string) bson.M {
	return bson.M{"guildId": scopeID, "weekKey": periodKey}
}

func activitySort() bson.D {
	return bson.D{{Key: "count", Value: -1}, {Key: "userId", Value: 1}}
}

var _ Store = (*MongoStore)(nil)
