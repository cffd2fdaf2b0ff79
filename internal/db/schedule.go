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

// ScheduleCollection defines the interface for schedule template operations.
type ScheduleCollection interface {
	InsertSchedule(ctx context.Context, schedule models.MaintenanceSchedule) (string, error)
	FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error)
	FindSchedules(ctx context.Context, filter bson.M) ([]models.MaintenanceSchedule, error)
	UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

// MongoScheduleCollection implements ScheduleCollection for MongoDB.
type MongoScheduleCollection struct {
	Collection *mongo.Collection
}

// InsertSchedule inserts a schedule template and returns its generated id.
func (c *MongoScheduleCollection) InsertSchedule(ctx context.Context, schedule models.MaintenanceSchedule) (string, error) {
	if c.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()
	res, err := c.Collection.InsertOne(ctx, schedule)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindScheduleByID finds a schedule template by its id.
func (c *MongoScheduleCollection) FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule ID: %w", err)
	}
	var schedule models.MaintenanceSchedule
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &schedule, nil
}

// FindSchedules queries schedule templates matching the filter.
func (c *MongoScheduleCollection) FindSchedules(ctx context.Context, filter bson.M) ([]models.MaintenanceSchedule, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var schedules []models.MaintenanceSchedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// UpdateSchedule updates a schedule template by its id.
func (c *MongoScheduleCollection) UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid schedule ID: %w", err)
	}
	schedule.ID = objectID
	schedule.UpdatedAt = time.Now()
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": schedule})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSchedule deletes a schedule template by its id. Items referencing the
// schedule are not touched; removal per item is the caller's responsibility.
func (c *MongoScheduleCollection) DeleteSchedule(ctx context.Context, id string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid schedule ID: %w", err)
	}
	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}
