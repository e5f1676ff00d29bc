package negotiationRepo

import (
	"context"
	"fmt"
	"time"

	"molbhav/database"
	"molbhav/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNegotiationRepo implements NegotiationRepository using MongoDB.
type MongoNegotiationRepo struct {
	coll *mongo.Collection
}

// NewMongoNegotiationRepo creates a new instance of NegotiationRepository using MongoDB.
func NewMongoNegotiationRepo() NegotiationRepository {
	repo := &MongoNegotiationRepo{coll: database.Collection("negotiations")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoNegotiationRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "requestId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "providerIdentity", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoNegotiationRepo) Create(s *models.NegotiationSession) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert negotiation session: %w", err)
	}
	return nil
}

func (r *MongoNegotiationRepo) GetByID(id string) (*models.NegotiationSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var s models.NegotiationSession
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch negotiation session %s: %w", id, err)
	}
	return &s, nil
}

func (r *MongoNegotiationRepo) GetByRequest(requestID string) ([]models.NegotiationSession, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"requestId": requestID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for request %s: %w", requestID, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.NegotiationSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *MongoNegotiationRepo) GetAgreedByRequest(requestID string) ([]models.NegotiationSession, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"requestId": requestID,
		"status":    models.SessionStatusCompleted,
		"outcome":   models.OutcomeAgreed,
	}
	opts := options.Find().SetSort(bson.D{{Key: "currentOffer", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreed sessions for request %s: %w", requestID, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.NegotiationSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *MongoNegotiationRepo) FindActiveByIdentity(identity string) ([]models.NegotiationSession, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"providerIdentity": identity, "status": models.SessionStatusActive}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active sessions for %s: %w", identity, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.NegotiationSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *MongoNegotiationRepo) HasActive(requestID, identity string) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"requestId":        requestID,
		"providerIdentity": identity,
		"status":           models.SessionStatusActive,
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check active session for request %s: %w", requestID, err)
	}
	return n > 0, nil
}

func (r *MongoNegotiationRepo) UpdateGuarded(s *models.NegotiationSession) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"id":      s.ID,
		"status":  models.SessionStatusActive,
		"version": s.Version,
	}
	s.Version++
	s.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, filter, s)
	if err != nil {
		s.Version--
		return false, fmt.Errorf("failed to update negotiation session %s: %w", s.ID, err)
	}
	if res.MatchedCount == 0 {
		s.Version--
		return false, nil
	}
	return true, nil
}

func (r *MongoNegotiationRepo) CountsByRequest(requestID string) (SessionCounts, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"requestId": requestID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"status": "$status", "outcome": "$outcome"},
			"n":   bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return SessionCounts{}, fmt.Errorf("failed to count sessions for request %s: %w", requestID, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			Status  string `bson:"status"`
			Outcome string `bson:"outcome"`
		} `bson:"_id"`
		N int `bson:"n"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return SessionCounts{}, fmt.Errorf("failed to decode session counts: %w", err)
	}

	var counts SessionCounts
	for _, row := range rows {
		counts.Contacted += row.N
		switch {
		case row.ID.Status == models.SessionStatusActive:
			counts.Active += row.N
		case row.ID.Status == models.SessionStatusCompleted && row.ID.Outcome == models.OutcomeAgreed:
			counts.Agreed += row.N
		}
	}
	return counts, nil
}

func (r *MongoNegotiationRepo) ExpireActive(requestID string, now time.Time, force bool) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"requestId": requestID, "status": models.SessionStatusActive}
	if !force {
		filter["expiresAt"] = bson.M{"$lte": now}
	}
	update := bson.M{
		"$set": bson.M{
			"status":    models.SessionStatusExpired,
			"outcome":   models.OutcomeTimeout,
			"updatedAt": now,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions for request %s: %w", requestID, err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoNegotiationRepo) CancelActive(requestID string) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"requestId": requestID, "status": models.SessionStatusActive}
	update := bson.M{
		"$set": bson.M{
			"status":    models.SessionStatusFailed,
			"outcome":   models.OutcomeCancelled,
			"updatedAt": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel sessions for request %s: %w", requestID, err)
	}
	return res.ModifiedCount, nil
}
