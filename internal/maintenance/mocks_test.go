package maintenance

import (
	"context"
	"io"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeScheduleStore is an in-memory ScheduleCollection.
type fakeScheduleStore struct {
	schedules map[string]models.MaintenanceSchedule
	// findErr forces FindScheduleByID to fail for a given id.
	findErr map[string]error
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		schedules: make(map[string]models.MaintenanceSchedule),
		findErr:   make(map[string]error),
	}
}

func (f *fakeScheduleStore) InsertSchedule(ctx context.Context, schedule models.MaintenanceSchedule) (string, error) {
	schedule.ID = primitive.NewObjectID()
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()
	f.schedules[schedule.ID.Hex()] = schedule
	return schedule.ID.Hex(), nil
}

func (f *fakeScheduleStore) FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	if err := f.findErr[id]; err != nil {
		return nil, err
	}
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := schedule
	return &cp, nil
}

func (f *fakeScheduleStore) FindSchedules(ctx context.Context, filter bson.M) ([]models.MaintenanceSchedule, error) {
	var out []models.MaintenanceSchedule
	for _, schedule := range f.schedules {
		if org, ok := filter["organization_id"].(string); ok && schedule.OrganizationID != org {
			continue
		}
		if itemType, ok := filter["item_type"].(models.ItemType); ok && schedule.ItemType != itemType {
			continue
		}
		if category, ok := filter["category"].(string); ok && schedule.Category != category {
			continue
		}
		out = append(out, schedule)
	}
	return out, nil
}

func (f *fakeScheduleStore) UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error {
	existing, ok := f.schedules[id]
	if !ok {
		return db.ErrNotFound
	}
	schedule.ID = existing.ID
	schedule.UpdatedAt = time.Now()
	f.schedules[id] = schedule
	return nil
}

func (f *fakeScheduleStore) DeleteSchedule(ctx context.Context, id string) error {
	if _, ok := f.schedules[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.schedules, id)
	return nil
}

// fakeItemStore is an in-memory ItemCollection mirroring the atomic update
// semantics of the Mongo implementation.
type fakeItemStore struct {
	items map[string]models.MaintainableItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[string]models.MaintainableItem)}
}

func (f *fakeItemStore) InsertItem(ctx context.Context, item models.MaintainableItem) (string, error) {
	item.ID = primitive.NewObjectID()
	if item.MaintenanceScheduleIDs == nil {
		item.MaintenanceScheduleIDs = []string{}
	}
	if item.MaintenanceStatus == nil {
		item.MaintenanceStatus = make(map[string]models.ScheduleStatus)
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	f.items[item.ID.Hex()] = item
	return item.ID.Hex(), nil
}

func copyItem(item models.MaintainableItem) models.MaintainableItem {
	cp := item
	cp.MaintenanceScheduleIDs = append([]string{}, item.MaintenanceScheduleIDs...)
	cp.MaintenanceStatus = make(map[string]models.ScheduleStatus, len(item.MaintenanceStatus))
	for k, v := range item.MaintenanceStatus {
		cp.MaintenanceStatus[k] = v
	}
	return cp
}

func (f *fakeItemStore) FindItemByID(ctx context.Context, id string) (*models.MaintainableItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := copyItem(item)
	return &cp, nil
}

func (f *fakeItemStore) FindItems(ctx context.Context, filter bson.M) ([]models.MaintainableItem, error) {
	var out []models.MaintainableItem
	for _, item := range f.items {
		if org, ok := filter["organization_id"].(string); ok && item.OrganizationID != org {
			continue
		}
		if cond, ok := filter["status"].(bson.M); ok {
			if excluded, ok := cond["$nin"].([]string); ok {
				skip := false
				for _, s := range excluded {
					if item.Status == s {
						skip = true
					}
				}
				if skip {
					continue
				}
			}
		}
		out = append(out, copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeItemStore) DeleteItem(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeItemStore) ApplySchedule(ctx context.Context, id, scheduleID string, def models.ScheduleStatus) (bool, error) {
	item, ok := f.items[id]
	if !ok {
		return false, db.ErrNotFound
	}
	if item.HasSchedule(scheduleID) {
		return false, nil
	}
	item.MaintenanceScheduleIDs = append(item.MaintenanceScheduleIDs, scheduleID)
	item.MaintenanceStatus[scheduleID] = def
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return true, nil
}

func (f *fakeItemStore) RemoveSchedule(ctx context.Context, id, scheduleID string) (bool, error) {
	item, ok := f.items[id]
	if !ok {
		return false, db.ErrNotFound
	}
	if !item.HasSchedule(scheduleID) {
		return false, nil
	}
	ids := item.MaintenanceScheduleIDs[:0]
	for _, sid := range item.MaintenanceScheduleIDs {
		if sid != scheduleID {
			ids = append(ids, sid)
		}
	}
	item.MaintenanceScheduleIDs = ids
	delete(item.MaintenanceStatus, scheduleID)
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return true, nil
}

func (f *fakeItemStore) SetScheduleStatus(ctx context.Context, id, scheduleID string, status models.ScheduleStatus) error {
	item, ok := f.items[id]
	if !ok {
		return db.ErrNotFound
	}
	item.MaintenanceStatus[scheduleID] = status
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return nil
}

func (f *fakeItemStore) SetScheduleStatuses(ctx context.Context, id string, statuses map[string]models.ScheduleStatus) error {
	item, ok := f.items[id]
	if !ok {
		return db.ErrNotFound
	}
	for sid, status := range statuses {
		item.MaintenanceStatus[sid] = status
	}
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return nil
}

// UpdateMeters mirrors the $max semantics: readings only ever go up.
func (f *fakeItemStore) UpdateMeters(ctx context.Context, id string, meters models.MeterReadings) error {
	item, ok := f.items[id]
	if !ok {
		return db.ErrNotFound
	}
	if meters.Hours != nil && *meters.Hours > item.CurrentHours {
		item.CurrentHours = *meters.Hours
	}
	if meters.Cycles != nil && *meters.Cycles > item.CurrentCycles {
		item.CurrentCycles = *meters.Cycles
	}
	if meters.Flights != nil && *meters.Flights > item.CurrentFlights {
		item.CurrentFlights = *meters.Flights
	}
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return nil
}

func (f *fakeItemStore) SetGrounding(ctx context.Context, id, reason, groundedBy, lifecycleStatus string, at time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return db.ErrNotFound
	}
	item.IsGrounded = true
	item.GroundedReason = reason
	item.GroundedBy = groundedBy
	item.GroundedDate = &at
	item.UngroundedBy = ""
	item.UngroundedDate = nil
	item.UngroundedNotes = ""
	item.Status = lifecycleStatus
	item.UpdatedAt = at
	f.items[id] = item
	return nil
}

func (f *fakeItemStore) ClearGrounding(ctx context.Context, id, clearedBy, notes, lifecycleStatus string, at time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return db.ErrNotFound
	}
	item.IsGrounded = false
	item.GroundedReason = ""
	item.GroundedBy = ""
	item.GroundedDate = nil
	item.UngroundedBy = clearedBy
	item.UngroundedDate = &at
	item.UngroundedNotes = notes
	item.Status = lifecycleStatus
	item.UpdatedAt = at
	f.items[id] = item
	return nil
}

// fakeRecordStore is an in-memory RecordCollection with idempotency-key
// deduplication and service_date sorting.
type fakeRecordStore struct {
	records []models.MaintenanceRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{}
}

func (f *fakeRecordStore) InsertRecord(ctx context.Context, record models.MaintenanceRecord) (*models.MaintenanceRecord, error) {
	if record.IdempotencyKey != "" {
		for _, existing := range f.records {
			if existing.IdempotencyKey == record.IdempotencyKey {
				cp := existing
				return &cp, nil
			}
		}
	}
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	f.records = append(f.records, record)
	cp := record
	return &cp, nil
}

func (f *fakeRecordStore) FindRecordByID(ctx context.Context, id string) (*models.MaintenanceRecord, error) {
	for _, record := range f.records {
		if record.ID.Hex() == id {
			cp := record
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func matchRecord(record models.MaintenanceRecord, filter bson.M) bool {
	if itemID, ok := filter["item_id"].(string); ok && record.ItemID != itemID {
		return false
	}
	if itemType, ok := filter["item_type"].(models.ItemType); ok && record.ItemType != itemType {
		return false
	}
	if org, ok := filter["organization_id"].(string); ok && record.OrganizationID != org {
		return false
	}
	switch status := filter["status"].(type) {
	case models.RecordStatus:
		if record.Status != status {
			return false
		}
	case bson.M:
		if allowed, ok := status["$in"].([]models.RecordStatus); ok {
			found := false
			for _, s := range allowed {
				if record.Status == s {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	if window, ok := filter["service_date"].(bson.M); ok {
		if from, ok := window["$gte"].(time.Time); ok && record.ServiceDate.Before(from) {
			return false
		}
		if to, ok := window["$lte"].(time.Time); ok && record.ServiceDate.After(to) {
			return false
		}
	}
	return true
}

func (f *fakeRecordStore) FindRecords(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.MaintenanceRecord, error) {
	var out []models.MaintenanceRecord
	for _, record := range f.records {
		if matchRecord(record, filter) {
			out = append(out, record)
		}
	}
	var limit int64
	for _, opt := range opts {
		if opt.Sort != nil {
			if sortSpec, ok := opt.Sort.(bson.D); ok {
				for _, field := range sortSpec {
					if field.Key != "service_date" {
						continue
					}
					desc := field.Value == -1
					sort.SliceStable(out, func(i, j int) bool {
						if desc {
							return out[i].ServiceDate.After(out[j].ServiceDate)
						}
						return out[i].ServiceDate.Before(out[j].ServiceDate)
					})
				}
			}
		}
		if opt.Limit != nil {
			limit = *opt.Limit
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecordStore) UpdateRecord(ctx context.Context, id string, record models.MaintenanceRecord) error {
	for i, existing := range f.records {
		if existing.ID.Hex() == id {
			record.ID = existing.ID
			record.UpdatedAt = time.Now()
			f.records[i] = record
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeRecordStore) UpdateRecordFields(ctx context.Context, id string, set bson.M) error {
	for i, record := range f.records {
		if record.ID.Hex() != id {
			continue
		}
		if v, ok := set["status"].(models.RecordStatus); ok {
			record.Status = v
		}
		if v, ok := set["completed_by"].(string); ok {
			record.CompletedBy = v
		}
		if v, ok := set["cost"].(float64); ok {
			record.Cost = v
		}
		if v, ok := set["labor_cost"].(float64); ok {
			record.LaborCost = v
		}
		if v, ok := set["parts_cost"].(float64); ok {
			record.PartsCost = v
		}
		if v, ok := set["parts_used"].([]string); ok {
			record.PartsUsed = v
		}
		if v, ok := set["notes"].(string); ok {
			record.Notes = v
		}
		record.UpdatedAt = time.Now()
		f.records[i] = record
		return nil
	}
	return db.ErrNotFound
}

func (f *fakeRecordStore) DeleteRecord(ctx context.Context, id string) error {
	for i, record := range f.records {
		if record.ID.Hex() == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}
