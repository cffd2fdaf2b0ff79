package maintenance

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// Ledger is the append-oriented history of maintenance events. Legacy-shape
// input (equipmentId / scheduledDate) is normalized exactly once at this
// boundary; everything downstream sees canonical fields.
type Ledger struct {
	records db.RecordCollection
	status  *StatusStore
	logger  *log.Logger
}

// NewLedger creates a record ledger.
func NewLedger(records db.RecordCollection, status *StatusStore, logger *log.Logger) *Ledger {
	return &Ledger{records: records, status: status, logger: logger}
}

func validateRecordInput(in models.RecordInput) error {
	if in.OrganizationID == "" {
		return &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	if in.ItemID == "" && in.EquipmentID == "" {
		return &ValidationError{Field: "item_id", Reason: "is required"}
	}
	if in.ItemID != "" && !models.IsValidItemType(in.ItemType) {
		return &ValidationError{Field: "item_type", Reason: "is required with item_id"}
	}
	if in.Status != "" && !models.IsValidRecordStatus(in.Status) {
		return &ValidationError{Field: "status", Reason: "unknown value"}
	}
	return nil
}

// CreateRecord validates, normalizes and persists a ledger record.
func (l *Ledger) CreateRecord(ctx context.Context, in models.RecordInput) (*models.MaintenanceRecord, error) {
	if err := validateRecordInput(in); err != nil {
		return nil, err
	}
	rec := in.Normalize(l.status.now())
	stored, err := l.records.InsertRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{
		"record_id": stored.ID.Hex(),
		"item_id":   stored.ItemID,
		"status":    stored.Status,
	}).Info("maintenance record created")
	return stored, nil
}

// GetRecord returns a ledger record by id.
func (l *Ledger) GetRecord(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	return l.records.FindRecordByID(ctx, id)
}

// UpdateRecord replaces the mutable fields of a ledger record.
func (l *Ledger) UpdateRecord(ctx context.Context, id string, rec models.MaintenanceRecord) error {
	if rec.Status != "" && !models.IsValidRecordStatus(rec.Status) {
		return &ValidationError{Field: "status", Reason: "unknown value"}
	}
	existing, err := l.records.FindRecordByID(ctx, id)
	if err != nil {
		return err
	}
	rec.OrganizationID = existing.OrganizationID
	rec.CreatedAt = existing.CreatedAt
	return l.records.UpdateRecord(ctx, id, rec)
}

// DeleteRecord removes a ledger record. Records are not deleted in normal
// operation; this is an administrative escape hatch.
func (l *Ledger) DeleteRecord(ctx context.Context, id string) error {
	return l.records.DeleteRecord(ctx, id)
}

// CompleteRecord transitions a record to "completed" and stamps the
// completion metadata.
func (l *Ledger) CompleteRecord(ctx context.Context, id string, c models.CompletionData) (*models.MaintenanceRecord, error) {
	if _, err := l.records.FindRecordByID(ctx, id); err != nil {
		return nil, err
	}
	set := bson.M{
		"status":       models.RecordCompleted,
		"completed_by": c.CompletedBy,
		"cost":         c.Cost,
		"labor_cost":   c.LaborCost,
		"parts_cost":   c.PartsCost,
	}
	if len(c.PartsUsed) > 0 {
		set["parts_used"] = c.PartsUsed
	}
	if c.Notes != "" {
		set["notes"] = c.Notes
	}
	if err := l.records.UpdateRecordFields(ctx, id, set); err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{"record_id": id, "completed_by": c.CompletedBy}).Info("maintenance record completed")
	return l.records.FindRecordByID(ctx, id)
}

// History returns an item's ledger records ordered by service date
// descending.
func (l *Ledger) History(ctx context.Context, itemID string, itemType models.ItemType) ([]models.MaintenanceRecord, error) {
	if itemID == "" {
		return nil, &ValidationError{Field: "item_id", Reason: "is required"}
	}
	filter := bson.M{"item_id": itemID}
	if itemType != "" {
		filter["item_type"] = itemType
	}
	opts := options.Find().SetSort(bson.D{{Key: "service_date", Value: -1}})
	return l.records.FindRecords(ctx, filter, opts)
}

// RecordMaintenance is the compound operation: persist a ledger record, then
// (if a schedule is referenced) reset that schedule's status on the item. The
// two writes span two documents and are not one transaction; the idempotency
// key on the record makes the first step retry-safe, so a caller that crashed
// between the steps can replay the whole call without duplicating the ledger
// entry.
func (l *Ledger) RecordMaintenance(ctx context.Context, itemID string, itemType models.ItemType, in models.RecordInput) (*models.MaintenanceRecord, error) {
	in.ItemID = itemID
	in.ItemType = itemType
	in.EquipmentID = ""
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = primitive.NewObjectID().Hex()
	}
	rec, err := l.CreateRecord(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.ScheduleID != "" {
		svc := ServiceData{
			ServiceDate: &rec.ServiceDate,
			Hours:       rec.HoursAtService,
			Cycles:      rec.CyclesAtService,
		}
		if err := l.status.UpdateItemMaintenanceStatus(ctx, itemID, itemType, in.ScheduleID, svc); err != nil {
			// The ledger entry exists but the status write failed. The caller
			// retries the whole call with the same idempotency key.
			l.logger.WithFields(log.Fields{
				"record_id":   rec.ID.Hex(),
				"item_id":     itemID,
				"schedule_id": in.ScheduleID,
			}).WithError(err).Error("recorded maintenance but status update failed")
			return rec, err
		}
	}
	return rec, nil
}

// RecordFromForm translates an external form-submission payload into the
// canonical RecordMaintenance call.
func (l *Ledger) RecordFromForm(ctx context.Context, f models.FormSubmission) (*models.MaintenanceRecord, error) {
	if f.LinkedItemID == "" {
		return nil, &ValidationError{Field: "linked_item_id", Reason: "is required"}
	}
	in := models.RecordInput{
		OrganizationID:  f.OrganizationID,
		ScheduleID:      f.MaintenanceScheduleID,
		ServiceType:     "form_submission",
		ServiceDate:     f.SubmittedAt,
		CompletedBy:     f.SubmittedBy,
		HoursAtService:  f.HoursAtSubmission,
		CyclesAtService: f.CyclesAtSubmission,
		Status:          models.RecordCompleted,
	}
	return l.RecordMaintenance(ctx, f.LinkedItemID, f.LinkedItemType, in)
}
