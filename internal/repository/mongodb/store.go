// Package mongodb implements the repository contracts against MongoDB.
// Five collections back the domain: batches plus one collection per event
// stream. Counter writes are conditional updates keyed on the previously
// observed values, and the mortality write commits the event insert and
// the counter decrement in one transaction.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
)

const (
	collBatches       = "batches"
	collFeed          = "feed"
	collMortality     = "mortality"
	collEggProduction = "egg-production"
	collVaccination   = "vaccination"
)

var kindCollections = map[models.EventKind]string{
	models.KindFeed:          collFeed,
	models.KindMortality:     collMortality,
	models.KindEggProduction: collEggProduction,
	models.KindVaccination:   collVaccination,
}

// Store owns the client connection and hands out repository views.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// New connects to MongoDB, verifies the connection and creates the indexes
// the uniqueness and idempotency guarantees rely on.
func New(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName), logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// One event per stream per batch per calendar day.
	dayUnique := mongo.IndexModel{
		Keys:    bson.D{{Key: "batchId", Value: 1}, {Key: "dateKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, name := range []string{collFeed, collMortality, collEggProduction, collVaccination} {
		if _, err := s.coll(name).Indexes().CreateOne(ctx, dayUnique); err != nil {
			return fmt.Errorf("index %s(batchId,dateKey): %w", name, err)
		}
	}

	// Retried mortality applies must hit the already-committed event.
	idemUnique := mongo.IndexModel{
		Keys: bson.D{{Key: "batchId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$exists": true, "$type": "string"}}),
	}
	if _, err := s.coll(collMortality).Indexes().CreateOne(ctx, idemUnique); err != nil {
		return fmt.Errorf("index mortality(batchId,idempotencyKey): %w", err)
	}

	ownerIdx := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}}}
	if _, err := s.coll(collBatches).Indexes().CreateOne(ctx, ownerIdx); err != nil {
		return fmt.Errorf("index batches(ownerId): %w", err)
	}

	sweepIdx := mongo.IndexModel{Keys: bson.D{{Key: "done", Value: 1}, {Key: "date", Value: 1}}}
	if _, err := s.coll(collVaccination).Indexes().CreateOne(ctx, sweepIdx); err != nil {
		return fmt.Errorf("index vaccination(done,date): %w", err)
	}

	s.logger.Debug("mongodb indexes ensured")
	return nil
}

// Batches returns the batch repository view of the store.
func (s *Store) Batches() repository.BatchRepository { return &batchRepo{store: s} }

// Feed returns the feed event repository view of the store.
func (s *Store) Feed() repository.FeedRepository { return &feedRepo{store: s} }

// Mortality returns the mortality event repository view of the store.
func (s *Store) Mortality() repository.MortalityRepository { return &mortalityRepo{store: s} }

// Eggs returns the egg production repository view of the store.
func (s *Store) Eggs() repository.EggRepository { return &eggRepo{store: s} }

// Vaccinations returns the vaccination repository view of the store.
func (s *Store) Vaccinations() repository.VaccinationRepository { return &vaccinationRepo{store: s} }

// ExistsOnDate implements validation.Lookup with a filtered count against
// the stream's collection.
func (s *Store) ExistsOnDate(ctx context.Context, kind models.EventKind, batchID, dateKey, excludingID string) (bool, error) {
	name, ok := kindCollections[kind]
	if !ok {
		return false, fmt.Errorf("unknown event kind %q", kind)
	}

	filter := bson.M{"batchId": batchID, "dateKey": dateKey}
	if excludingID != "" {
		filter["_id"] = bson.M{"$ne": excludingID}
	}

	n, err := s.coll(name).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s on date: %w", name, err)
	}
	return n > 0, nil
}
