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

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
)

func listByBatch[T any](ctx context.Context, c *mongo.Collection, batchID string) ([]T, error) {
	cur, err := c.Find(ctx, bson.M{"batchId": batchID},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s events: %w", c.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s events: %w", c.Name(), err)
	}
	return out, nil
}

func getByID[T any](ctx context.Context, c *mongo.Collection, id string) (T, error) {
	var ev T
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ev, repository.ErrNotFound
	}
	if err != nil {
		return ev, fmt.Errorf("find %s event %s: %w", c.Name(), id, err)
	}
	return ev, nil
}

func insertEvent[T any](ctx context.Context, c *mongo.Collection, ev T) (T, error) {
	var zero T
	if _, err := c.InsertOne(ctx, ev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return zero, repository.ErrDuplicateKey
		}
		return zero, fmt.Errorf("insert %s event: %w", c.Name(), err)
	}
	return ev, nil
}

func replaceEvent[T any](ctx context.Context, c *mongo.Collection, id string, ev T) (T, error) {
	var zero T
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, ev)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return zero, repository.ErrDuplicateKey
		}
		return zero, fmt.Errorf("replace %s event %s: %w", c.Name(), id, err)
	}
	if res.MatchedCount == 0 {
		return zero, repository.ErrNotFound
	}
	return ev, nil
}

func deleteEvent(ctx context.Context, c *mongo.Collection, id string) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s event %s: %w", c.Name(), id, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ---- feed ----

type feedRepo struct {
	store *Store
}

func (r *feedRepo) Insert(ctx context.Context, ev models.FeedEvent) (models.FeedEvent, error) {
	if ev.ID == "" {
		ev.ID = primitive.NewObjectID().Hex()
	}
	return insertEvent(ctx, r.store.coll(collFeed), ev)
}

func (r *feedRepo) Get(ctx context.Context, id string) (models.FeedEvent, error) {
	return getByID[models.FeedEvent](ctx, r.store.coll(collFeed), id)
}

func (r *feedRepo) Update(ctx context.Context, ev models.FeedEvent) (models.FeedEvent, error) {
	return replaceEvent(ctx, r.store.coll(collFeed), ev.ID, ev)
}

func (r *feedRepo) Delete(ctx context.Context, id string) error {
	return deleteEvent(ctx, r.store.coll(collFeed), id)
}

func (r *feedRepo) ListByBatch(ctx context.Context, batchID string) ([]models.FeedEvent, error) {
	return listByBatch[models.FeedEvent](ctx, r.store.coll(collFeed), batchID)
}

// ---- mortality (append-only) ----

type mortalityRepo struct {
	store *Store
}

func (r *mortalityRepo) Get(ctx context.Context, id string) (models.MortalityEvent, error) {
	return getByID[models.MortalityEvent](ctx, r.store.coll(collMortality), id)
}

func (r *mortalityRepo) ListByBatch(ctx context.Context, batchID string) ([]models.MortalityEvent, error) {
	return listByBatch[models.MortalityEvent](ctx, r.store.coll(collMortality), batchID)
}

func (r *mortalityRepo) FindByIdempotencyKey(ctx context.Context, batchID, key string) (models.MortalityEvent, error) {
	var ev models.MortalityEvent
	err := r.store.coll(collMortality).
		FindOne(ctx, bson.M{"batchId": batchID, "idempotencyKey": key}).
		Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MortalityEvent{}, repository.ErrNotFound
	}
	if err != nil {
		return models.MortalityEvent{}, fmt.Errorf("find mortality by idempotency key: %w", err)
	}
	return ev, nil
}

// ---- egg production ----

type eggRepo struct {
	store *Store
}

func (r *eggRepo) Insert(ctx context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error) {
	if ev.ID == "" {
		ev.ID = primitive.NewObjectID().Hex()
	}
	return insertEvent(ctx, r.store.coll(collEggProduction), ev)
}

func (r *eggRepo) Get(ctx context.Context, id string) (models.EggProductionEvent, error) {
	return getByID[models.EggProductionEvent](ctx, r.store.coll(collEggProduction), id)
}

func (r *eggRepo) Update(ctx context.Context, ev models.EggProductionEvent) (models.EggProductionEvent, error) {
	return replaceEvent(ctx, r.store.coll(collEggProduction), ev.ID, ev)
}

func (r *eggRepo) Delete(ctx context.Context, id string) error {
	return deleteEvent(ctx, r.store.coll(collEggProduction), id)
}

func (r *eggRepo) ListByBatch(ctx context.Context, batchID string) ([]models.EggProductionEvent, error) {
	return listByBatch[models.EggProductionEvent](ctx, r.store.coll(collEggProduction), batchID)
}

// ---- vaccination ----

type vaccinationRepo struct {
	store *Store
}

func (r *vaccinationRepo) Insert(ctx context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error) {
	if ev.ID == "" {
		ev.ID = primitive.NewObjectID().Hex()
	}
	return insertEvent(ctx, r.store.coll(collVaccination), ev)
}

func (r *vaccinationRepo) Get(ctx context.Context, id string) (models.VaccinationEvent, error) {
	return getByID[models.VaccinationEvent](ctx, r.store.coll(collVaccination), id)
}

func (r *vaccinationRepo) Update(ctx context.Context, ev models.VaccinationEvent) (models.VaccinationEvent, error) {
	return replaceEvent(ctx, r.store.coll(collVaccination), ev.ID, ev)
}

func (r *vaccinationRepo) Delete(ctx context.Context, id string) error {
	return deleteEvent(ctx, r.store.coll(collVaccination), id)
}

func (r *vaccinationRepo) ListByBatch(ctx context.Context, batchID string) ([]models.VaccinationEvent, error) {
	return listByBatch[models.VaccinationEvent](ctx, r.store.coll(collVaccination), batchID)
}

func (r *vaccinationRepo) ListPendingDue(ctx context.Context, dueBy time.Time) ([]models.VaccinationEvent, error) {
	filter := bson.M{
		"done":          false,
		"date":          bson.M{"$lte": dueBy},
		"reminderCount": bson.M{"$lt": models.MaxVaccinationReminders},
	}
	cur, err := r.store.coll(collVaccination).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pending vaccinations: %w", err)
	}
	var out []models.VaccinationEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pending vaccinations: %w", err)
	}
	return out, nil
}

func (r *vaccinationRepo) IncrementReminder(ctx context.Context, id string) (int, error) {
	res := r.store.coll(collVaccination).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "reminderCount": bson.M{"$lt": models.MaxVaccinationReminders}},
		bson.M{"$inc": bson.M{"reminderCount": 1}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var ev models.VaccinationEvent
	if err := res.Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either missing or already at the cap; report the stored value.
			current, getErr := r.Get(ctx, id)
			if getErr != nil {
				return 0, getErr
			}
			return current.ReminderCount, nil
		}
		return 0, fmt.Errorf("increment reminder for %s: %w", id, err)
	}
	return ev.ReminderCount, nil
}
