package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// RecordCollection defines the interface for ledger record operations.
type RecordCollection interface {
	// InsertRecord inserts a ledger record. When the record carries an
	// idempotency key the insert is an upsert keyed on it: a retried call
	// returns the already-stored record instead of duplicating it.
	InsertRecord(ctx context.Context, record models.MaintenanceRecord) (*models.MaintenanceRecord, error)
	FindRecordByID(ctx context.Context, id string) (*models.MaintenanceRecord, error)
	FindRecords(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MaintenanceRecord, error)
	UpdateRecord(ctx context.Context, id string, record models.MaintenanceRecord) error
	UpdateRecordFields(ctx context.Context, id string, set bson.M) error
	DeleteRecord(ctx context.Context, id string) error
}

// MongoRecordCollection implements RecordCollection for MongoDB.
type MongoRecordCollection struct {
	Collection *mongo.Collection
}

// InsertRecord inserts a ledger record, deduplicating on the idempotency key.
func (c *MongoRecordCollection) InsertRecord(ctx context.Context, record models.MaintenanceRecord) (*models.MaintenanceRecord, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	if record.IdempotencyKey == "" {
		res, err := c.Collection.InsertOne(ctx, record)
		if err != nil {
			return nil, err
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			record.ID = oid
		}
		return &record, nil
	}

	record.ID = primitive.NewObjectID()
	// $setOnInsert leaves an existing record (same key) untouched, so a
	// retried compound write cannot produce a second ledger entry.
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var stored models.MaintenanceRecord
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"idempotency_key": record.IdempotencyKey},
		bson.M{"$setOnInsert": record},
		opts,
	).Decode(&stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindRecordByID finds a ledger record by its id.
func (c *MongoRecordCollection) FindRecordByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid record ID: %w", err)
	}
	var record models.MaintenanceRecord
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &record, nil
}

// FindRecords queries ledger records matching the filter.
func (c *MongoRecordCollection) FindRecords(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MaintenanceRecord, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var records []models.MaintenanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateRecord replaces the mutable fields of a ledger record.
func (c *MongoRecordCollection) UpdateRecord(ctx context.Context, id string, record models.MaintenanceRecord) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record ID: %w", err)
	}
	record.ID = objectID
	record.UpdatedAt = time.Now()
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": record})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateRecordFields sets individual fields on a ledger record.
func (c *MongoRecordCollection) UpdateRecordFields(ctx context.Context, id string, set bson.M) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record ID: %w", err)
	}
	set["updated_at"] = time.Now()
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteRecord deletes a ledger record by its id.
func (c *MongoRecordCollection) DeleteRecord(ctx context.Context, id string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record ID: %w", err)
	}
	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}
