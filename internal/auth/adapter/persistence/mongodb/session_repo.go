package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secure-auth/internal/auth/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// SessionRepository implements repository.SessionRepository using MongoDB.
// Expired records are removed by a TTL index once the retention window has passed.
type SessionRepository struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

// NewSessionRepository creates the sessions collection indexes and returns the repository.
func NewSessionRepository(ctx context.Context, db *mongo.Database, retention time.Duration) (*SessionRepository, error) {
	repo := &SessionRepository{
		client:   db.Client(),
		sessions: db.Collection("sessions"),
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}, {Key: "login_time", Value: 1}},
		},
	}
	if _, err := repo.sessions.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create session indexes: %w", err)
	}
	if err := repo.ensureTTLIndex(ctx, int32(retention/time.Second)); err != nil {
		return nil, fmt.Errorf("ensure session ttl index: %w", err)
	}
	return repo, nil
}

const ttlIndexName = "expires_at_1"

// ensureTTLIndex creates the expires_at TTL index, or changes its expireAfterSeconds
// in place with collMod when the retention setting differs from the existing index.
func (r *SessionRepository) ensureTTLIndex(ctx context.Context, seconds int32) error {
	current, found, err := r.ttlSeconds(ctx)
	if err != nil {
		return err
	}
	if !found {
		_, err := r.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName(ttlIndexName).SetExpireAfterSeconds(seconds),
		})
		return err
	}
	if current == int64(seconds) {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: r.sessions.Name()},
		{Key: "index", Value: bson.D{
			{Key: "name", Value: ttlIndexName},
			{Key: "expireAfterSeconds", Value: seconds},
		}},
	}
	return r.sessions.Database().RunCommand(ctx, cmd).Err()
}

// ttlSeconds reads expireAfterSeconds of the TTL index, if it exists.
func (r *SessionRepository) ttlSeconds(ctx context.Context) (int64, bool, error) {
	cursor, err := r.sessions.Indexes().List(ctx)
	if err != nil {
		return 0, false, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var idx struct {
			Name               string `bson:"name"`
			ExpireAfterSeconds *int64 `bson:"expireAfterSeconds"`
		}
		if err := cursor.Decode(&idx); err != nil {
			return 0, false, err
		}
		if idx.Name != ttlIndexName {
			continue
		}
		if idx.ExpireAfterSeconds == nil {
			return 0, false, fmt.Errorf("index %s exists without expireAfterSeconds", ttlIndexName)
		}
		return *idx.ExpireAfterSeconds, true, nil
	}
	return 0, false, cursor.Err()
}

// TTLSeconds reports the retention currently applied by the TTL index.
func (r *SessionRepository) TTLSeconds(ctx context.Context) (int64, error) {
	seconds, found, err := r.ttlSeconds(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("index %s not found", ttlIndexName)
	}
	return seconds, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrSessionExists
		}
		return err
	}
	return nil
}

func (r *SessionRepository) FindActive(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID, "user_id": userID, "is_active": true}, nil)
}

func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID}, nil)
}

func (r *SessionRepository) CountActive(ctx context.Context, userID string) (int64, error) {
	return r.sessions.CountDocuments(ctx, bson.M{"user_id": userID, "is_active": true})
}

func (r *SessionRepository) FindOldestActive(ctx context.Context, userID string) (*model.Session, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "login_time", Value: 1}, {Key: "session_id", Value: 1}})
	return r.findOne(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
}

func (r *SessionRepository) ListActive(ctx context.Context, userID string) ([]*model.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
}

func (r *SessionRepository) ListHistory(ctx context.Context, userID string, limit int) ([]*model.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "login_time", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *SessionRepository) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "is_active": true},
		bson.M{"$set": bson.M{"last_activity": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// Deactivate matches only active records, so of several concurrent callers
// exactly one observes a modification.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID, reason string, at time.Time) (bool, error) {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "is_active": true},
		revokeUpdate(reason, at),
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

func (r *SessionRepository) DeactivateAllExcept(ctx context.Context, userID, keepSessionID, reason string, at time.Time) (int64, error) {
	result, err := r.sessions.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_active": true, "session_id": bson.M{"$ne": keepSessionID}},
		revokeUpdate(reason, at),
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func revokeUpdate(reason string, at time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"is_active":      false,
		"revoked_at":     at,
		"revoked_reason": reason,
	}}
}

func (r *SessionRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*model.Session, error) {
	var session model.Session
	var err error
	if opts != nil {
		err = r.sessions.FindOne(ctx, filter, opts).Decode(&session)
	} else {
		err = r.sessions.FindOne(ctx, filter).Decode(&session)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Session, error) {
	cursor, err := r.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := make([]*model.Session, 0)
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
