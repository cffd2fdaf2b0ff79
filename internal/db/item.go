package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ItemCollection defines the interface for maintainable-item operations.
// Every read-modify-write against a single item document is expressed as one
// atomic MongoDB update so concurrent callers on the same item cannot lose
// updates.
type ItemCollection interface {
	InsertItem(ctx context.Context, item models.MaintainableItem) (string, error)
	FindItemByID(ctx context.Context, id string) (*models.MaintainableItem, error)
	FindItems(ctx context.Context, filter bson.M) ([]models.MaintainableItem, error)
	DeleteItem(ctx context.Context, id string) error

	// ApplySchedule adds a schedule id and its default status entry in one
	// update. Returns false without error when the schedule was already
	// applied.
	ApplySchedule(ctx context.Context, id, scheduleID string, def models.ScheduleStatus) (bool, error)
	// RemoveSchedule removes the schedule id and its status entry in one
	// update. Returns false without error when the schedule was not applied.
	RemoveSchedule(ctx context.Context, id, scheduleID string) (bool, error)
	SetScheduleStatus(ctx context.Context, id, scheduleID string, status models.ScheduleStatus) error
	SetScheduleStatuses(ctx context.Context, id string, statuses map[string]models.ScheduleStatus) error

	UpdateMeters(ctx context.Context, id string, meters models.MeterReadings) error
	SetGrounding(ctx context.Context, id, reason, groundedBy, lifecycleStatus string, at time.Time) error
	ClearGrounding(ctx context.Context, id, clearedBy, notes, lifecycleStatus string, at time.Time) error
}

// MongoItemCollection implements ItemCollection for MongoDB.
type MongoItemCollection struct {
	Collection *mongo.Collection
}

// InsertItem inserts an item record and returns its generated id.
func (c *MongoItemCollection) InsertItem(ctx context.Context, item models.MaintainableItem) (string, error) {
	if c.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	if item.MaintenanceScheduleIDs == nil {
		item.MaintenanceScheduleIDs = []string{}
	}
	if item.MaintenanceStatus == nil {
		item.MaintenanceStatus = map[string]models.ScheduleStatus{}
	}
	res, err := c.Collection.InsertOne(ctx, item)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindItemByID finds an item by its id.
func (c *MongoItemCollection) FindItemByID(ctx context.Context, id string) (*models.MaintainableItem, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item ID: %w", err)
	}
	var item models.MaintainableItem
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// FindItems queries item records matching the filter.
func (c *MongoItemCollection) FindItems(ctx context.Context, filter bson.M) ([]models.MaintainableItem, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var items []models.MaintainableItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem deletes an item by its id.
func (c *MongoItemCollection) DeleteItem(ctx context.Context, id string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ApplySchedule adds the schedule id to maintenance_schedule_ids and inserts
// the default status entry in a single update. The guard filter makes the
// operation idempotent: a second call matches nothing and reports false.
func (c *MongoItemCollection) ApplySchedule(ctx context.Context, id, scheduleID string, def models.ScheduleStatus) (bool, error) {
	if c.Collection == nil {
		return false, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid item ID: %w", err)
	}
	res, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "maintenance_schedule_ids": bson.M{"$ne": scheduleID}},
		bson.M{
			"$push": bson.M{"maintenance_schedule_ids": scheduleID},
			"$set": bson.M{
				"maintenance_status." + scheduleID: def,
				"updated_at":                       time.Now(),
			},
		},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		// Either the item does not exist or the schedule is already applied.
		count, err := c.Collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return false, nil
	}
	return true, nil
}

// RemoveSchedule removes the schedule id and its status entry in a single
// update. No-op (false, nil) if the schedule was not applied.
func (c *MongoItemCollection) RemoveSchedule(ctx context.Context, id, scheduleID string) (bool, error) {
	if c.Collection == nil {
		return false, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid item ID: %w", err)
	}
	res, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$pull":  bson.M{"maintenance_schedule_ids": scheduleID},
			"$unset": bson.M{"maintenance_status." + scheduleID: ""},
			"$set":   bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return res.ModifiedCount > 0, nil
}

// SetScheduleStatus overwrites the embedded status entry for one schedule.
func (c *MongoItemCollection) SetScheduleStatus(ctx context.Context, id, scheduleID string, status models.ScheduleStatus) error {
	return c.SetScheduleStatuses(ctx, id, map[string]models.ScheduleStatus{scheduleID: status})
}

// SetScheduleStatuses overwrites the embedded status entries for several
// schedules in one update.
func (c *MongoItemCollection) SetScheduleStatuses(ctx context.Context, id string, statuses map[string]models.ScheduleStatus) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if len(statuses) == 0 {
		return nil
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	set := bson.M{"updated_at": time.Now()}
	for scheduleID, status := range statuses {
		set["maintenance_status."+scheduleID] = status
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateMeters raises the cumulative meter readings. $max keeps readings
// monotonically non-decreasing even when updates arrive out of order.
func (c *MongoItemCollection) UpdateMeters(ctx context.Context, id string, meters models.MeterReadings) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	max := bson.M{}
	if meters.Hours != nil {
		max["current_hours"] = *meters.Hours
	}
	if meters.Cycles != nil {
		max["current_cycles"] = *meters.Cycles
	}
	if meters.Flights != nil {
		max["current_flights"] = *meters.Flights
	}
	if len(max) == 0 {
		return nil
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$max": max,
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetGrounding marks the item grounded and records the audit fields in one
// update. Grounding an already-grounded item refreshes reason/actor/timestamp.
func (c *MongoItemCollection) SetGrounding(ctx context.Context, id, reason, groundedBy, lifecycleStatus string, at time.Time) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"is_grounded":     true,
			"grounded_reason": reason,
			"grounded_date":   at,
			"grounded_by":     groundedBy,
			"status":          lifecycleStatus,
			"updated_at":      at,
		},
		"$unset": bson.M{
			"ungrounded_by":    "",
			"ungrounded_date":  "",
			"ungrounded_notes": "",
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClearGrounding returns the item to service, clearing the grounding fields
// and stamping who cleared it.
func (c *MongoItemCollection) ClearGrounding(ctx context.Context, id, clearedBy, notes, lifecycleStatus string, at time.Time) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %w", err)
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"is_grounded":      false,
			"ungrounded_by":    clearedBy,
			"ungrounded_date":  at,
			"ungrounded_notes": notes,
			"status":           lifecycleStatus,
			"updated_at":       at,
		},
		"$unset": bson.M{
			"grounded_reason": "",
			"grounded_date":   "",
			"grounded_by":     "",
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}
