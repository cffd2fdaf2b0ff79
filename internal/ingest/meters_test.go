package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubItems holds a single item and implements just enough of
// db.ItemCollection for the meter-update path.
type stubItems struct {
	id   string
	item models.MaintainableItem
}

func (s *stubItems) FindItemByID(ctx context.Context, id string) (*models.MaintainableItem, error) {
	if id != s.id {
		return nil, db.ErrNotFound
	}
	cp := s.item
	cp.MaintenanceStatus = make(map[string]models.ScheduleStatus, len(s.item.MaintenanceStatus))
	for k, v := range s.item.MaintenanceStatus {
		cp.MaintenanceStatus[k] = v
	}
	return &cp, nil
}

func (s *stubItems) UpdateMeters(ctx context.Context, id string, meters models.MeterReadings) error {
	if id != s.id {
		return db.ErrNotFound
	}
	if meters.Hours != nil && *meters.Hours > s.item.CurrentHours {
		s.item.CurrentHours = *meters.Hours
	}
	if meters.Cycles != nil && *meters.Cycles > s.item.CurrentCycles {
		s.item.CurrentCycles = *meters.Cycles
	}
	if meters.Flights != nil && *meters.Flights > s.item.CurrentFlights {
		s.item.CurrentFlights = *meters.Flights
	}
	return nil
}

func (s *stubItems) SetScheduleStatuses(ctx context.Context, id string, statuses map[string]models.ScheduleStatus) error {
	for sid, status := range statuses {
		s.item.MaintenanceStatus[sid] = status
	}
	return nil
}

func (s *stubItems) InsertItem(ctx context.Context, item models.MaintainableItem) (string, error) {
	return "", errors.New("not implemented")
}
func (s *stubItems) FindItems(ctx context.Context, filter bson.M) ([]models.MaintainableItem, error) {
	return nil, errors.New("not implemented")
}
func (s *stubItems) DeleteItem(ctx context.Context, id string) error {
	return errors.New("not implemented")
}
func (s *stubItems) ApplySchedule(ctx context.Context, id, scheduleID string, def models.ScheduleStatus) (bool, error) {
	return false, errors.New("not implemented")
}
func (s *stubItems) RemoveSchedule(ctx context.Context, id, scheduleID string) (bool, error) {
	return false, errors.New("not implemented")
}
func (s *stubItems) SetScheduleStatus(ctx context.Context, id, scheduleID string, status models.ScheduleStatus) error {
	return errors.New("not implemented")
}
func (s *stubItems) SetGrounding(ctx context.Context, id, reason, groundedBy, lifecycleStatus string, at time.Time) error {
	return errors.New("not implemented")
}
func (s *stubItems) ClearGrounding(ctx context.Context, id, clearedBy, notes, lifecycleStatus string, at time.Time) error {
	return errors.New("not implemented")
}

// stubSchedules serves one schedule by id.
type stubSchedules struct {
	id       string
	schedule models.MaintenanceSchedule
}

func (s *stubSchedules) FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	if id != s.id {
		return nil, db.ErrNotFound
	}
	cp := s.schedule
	return &cp, nil
}

func (s *stubSchedules) InsertSchedule(ctx context.Context, schedule models.MaintenanceSchedule) (string, error) {
	return "", errors.New("not implemented")
}
func (s *stubSchedules) FindSchedules(ctx context.Context, filter bson.M) ([]models.MaintenanceSchedule, error) {
	return nil, errors.New("not implemented")
}
func (s *stubSchedules) UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error {
	return errors.New("not implemented")
}
func (s *stubSchedules) DeleteSchedule(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func ptr(v float64) *float64 { return &v }

func newMeterFixture() (*Listener, *FakeClient, *stubItems) {
	items := &stubItems{
		id: "itm-1",
		item: models.MaintainableItem{
			ItemType:               models.ItemTypeAircraft,
			CurrentHours:           50,
			MaintenanceScheduleIDs: []string{"sched-1"},
			MaintenanceStatus: map[string]models.ScheduleStatus{
				"sched-1": {NextDueHours: ptr(100), Status: models.TierOK},
			},
		},
	}
	schedules := &stubSchedules{
		id: "sched-1",
		schedule: models.MaintenanceSchedule{
			Name:             "hour inspection",
			ItemType:         models.ItemTypeAircraft,
			IntervalType:     models.IntervalHours,
			IntervalValue:    100,
			WarningThreshold: 10,
		},
	}
	status := maintenance.NewStatusStore(items, schedules, testLogger())
	client := NewFakeClient()
	return NewListener(client, status, testLogger()), client, items
}

func TestListener_AppliesMeterReading(t *testing.T) {
	listener, client, items := newMeterFixture()
	assert.NoError(t, listener.Start())

	payload, err := json.Marshal(MeterMessage{
		ItemID:     "itm-1",
		ItemType:   models.ItemTypeAircraft,
		Hours:      ptr(120),
		RecordedAt: time.Now(),
	})
	assert.NoError(t, err)
	client.Inject(TopicMeters, MeterTopic("itm-1"), payload)

	assert.Equal(t, 120.0, items.item.CurrentHours)
	entry := items.item.MaintenanceStatus["sched-1"]
	assert.Equal(t, models.TierOverdue, entry.Status)
	assert.Equal(t, -20.0, *entry.Remaining)
}

func TestListener_IgnoresInvalidPayloads(t *testing.T) {
	listener, client, items := newMeterFixture()
	assert.NoError(t, listener.Start())

	client.Inject(TopicMeters, MeterTopic("itm-1"), []byte("not json"))
	client.Inject(TopicMeters, MeterTopic("itm-1"), []byte(`{"hours": 500}`)) // no item_id

	assert.Equal(t, 50.0, items.item.CurrentHours)
	assert.Equal(t, models.TierOK, items.item.MaintenanceStatus["sched-1"].Status)
}

func TestListener_UnknownItem(t *testing.T) {
	listener, client, items := newMeterFixture()
	assert.NoError(t, listener.Start())

	payload, _ := json.Marshal(MeterMessage{ItemID: "ghost", Hours: ptr(999)})
	client.Inject(TopicMeters, MeterTopic("ghost"), payload)

	assert.Equal(t, 50.0, items.item.CurrentHours)
}

func TestListener_SubscribeError(t *testing.T) {
	listener, client, _ := newMeterFixture()
	client.SubscribeError = assert.AnError

	assert.Error(t, listener.Start())
}

func TestListener_Close(t *testing.T) {
	listener, client, _ := newMeterFixture()
	listener.Close()
	assert.True(t, client.Closed)
}

func TestFormatMeterPayload(t *testing.T) {
	payload, err := FormatMeterPayload(MeterMessage{ItemID: "itm-1", Hours: ptr(12.5)})
	assert.NoError(t, err)

	var decoded MeterMessage
	assert.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "itm-1", decoded.ItemID)
	assert.Equal(t, 12.5, *decoded.Hours)

	_, err = FormatMeterPayload(MeterMessage{Hours: ptr(1)})
	assert.Error(t, err)
}

func TestMeterTopic(t *testing.T) {
	assert.Equal(t, "fleet/itm-1/meters", MeterTopic("itm-1"))
}
