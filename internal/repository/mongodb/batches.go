package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
)

type batchRepo struct {
	store *Store
}

func (r *batchRepo) Create(ctx context.Context, batch models.Batch) (models.Batch, error) {
	if batch.ID == "" {
		batch.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.store.coll(collBatches).InsertOne(ctx, batch); err != nil {
		return models.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepo) Get(ctx context.Context, id string) (models.Batch, error) {
	var b models.Batch
	err := r.store.coll(collBatches).FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Batch{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Batch{}, fmt.Errorf("find batch %s: %w", id, err)
	}
	return b, nil
}

func (r *batchRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Batch, error) {
	cur, err := r.store.coll(collBatches).Find(ctx, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list batches for owner: %w", err)
	}
	var out []models.Batch
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode batches: %w", err)
	}
	return out, nil
}

func (r *batchRepo) DistinctOwners(ctx context.Context) ([]string, error) {
	values, err := r.store.coll(collBatches).Distinct(ctx, "ownerId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct owners: %w", err)
	}
	owners := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			owners = append(owners, s)
		}
	}
	return owners, nil
}

// ApplyMortality inserts the event and applies the counter decrement in one
// transaction. The batch update is conditional on currentCount still being
// prevCurrent; a mismatch aborts the transaction and nothing is written.
func (r *batchRepo) ApplyMortality(ctx context.Context, ev models.MortalityEvent, prevCurrent int) (models.MortalityEvent, models.Batch, error) {
	if ev.ID == "" {
		ev.ID = primitive.NewObjectID().Hex()
	}

	session, err := r.store.client.StartSession()
	if err != nil {
		return models.MortalityEvent{}, models.Batch{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	var committed models.Batch
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.store.coll(collMortality).InsertOne(sc, ev); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, repository.ErrDuplicateKey
			}
			return nil, fmt.Errorf("insert mortality event: %w", err)
		}

		res := r.store.coll(collBatches).FindOneAndUpdate(sc,
			bson.M{"_id": ev.BatchID, "currentCount": prevCurrent},
			bson.M{"$set": bson.M{"currentCount": ev.RemainingAfter, "lastUpdate": ev.UpdatedAt}},
			options.FindOneAndUpdate().SetReturnDocument(options.After))

		var b models.Batch
		if err := res.Decode(&b); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// Counter moved between the caller's read and this commit.
				return nil, repository.ErrConcurrentModification
			}
			return nil, fmt.Errorf("conditional batch update: %w", err)
		}
		committed = b
		return nil, nil
	})
	if err != nil {
		return models.MortalityEvent{}, models.Batch{}, err
	}

	return ev, committed, nil
}

// AdjustCounts sets both counters, conditional on the previously observed
// pair.
func (r *batchRepo) AdjustCounts(ctx context.Context, batchID string, prevCurrent, prevInitial, newCurrent, newInitial int) (models.Batch, error) {
	res := r.store.coll(collBatches).FindOneAndUpdate(ctx,
		bson.M{"_id": batchID, "currentCount": prevCurrent, "initialCount": prevInitial},
		bson.M{"$set": bson.M{"currentCount": newCurrent, "initialCount": newInitial, "lastUpdate": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var b models.Batch
	if err := res.Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Batch{}, repository.ErrConcurrentModification
		}
		return models.Batch{}, fmt.Errorf("conditional count adjustment: %w", err)
	}
	return b, nil
}

// Watch streams batch counter changes via a change stream. The returned
// channel closes when ctx is cancelled or the stream ends.
func (r *batchRepo) Watch(ctx context.Context) (<-chan repository.BatchChange, error) {
	cs, err := r.store.coll(collBatches).Watch(ctx,
		mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}}}}}},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("open batch change stream: %w", err)
	}

	ch := make(chan repository.BatchChange, 16)
	go func() {
		defer close(ch)
		defer func() {
			if err := cs.Close(context.Background()); err != nil {
				r.store.logger.Warn("failed closing change stream", zap.Error(err))
			}
		}()

		for cs.Next(ctx) {
			var event struct {
				FullDocument models.Batch `bson:"fullDocument"`
			}
			if err := cs.Decode(&event); err != nil {
				r.store.logger.Warn("undecodable change stream event", zap.Error(err))
				continue
			}
			if event.FullDocument.ID == "" {
				continue
			}
			change := repository.BatchChange{
				BatchID:      event.FullDocument.ID,
				OwnerID:      event.FullDocument.OwnerID,
				CurrentCount: event.FullDocument.CurrentCount,
				InitialCount: event.FullDocument.InitialCount,
				At:           time.Now().UTC(),
			}
			select {
			case ch <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
