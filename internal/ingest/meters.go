// Package ingest receives meter readings over MQTT and feeds them into the
// item maintenance state store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// TopicMeters is the MQTT topic filter for meter readings. The wildcard
// segment is the publisher's item id, informational only; the payload is
// authoritative.
const TopicMeters = "fleet/+/meters"

// Client abstracts the MQTT connection so the listener can be tested without
// a broker.
type Client interface {
	// Subscribe registers a handler for the topic filter.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	// Close disconnects from the broker.
	Close()
}

// MeterMessage is the wire payload of one meter reading.
type MeterMessage struct {
	ItemID     string          `json:"item_id"`
	ItemType   models.ItemType `json:"item_type"`
	Hours      *float64        `json:"hours,omitempty"`
	Cycles     *float64        `json:"cycles,omitempty"`
	Flights    *float64        `json:"flights,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Listener subscribes to meter readings and applies them to items, which
// triggers the full status recompute per reading.
type Listener struct {
	client  Client
	status  *maintenance.StatusStore
	logger  *log.Logger
	timeout time.Duration
}

// NewListener creates a meter-reading listener.
func NewListener(client Client, status *maintenance.StatusStore, logger *log.Logger) *Listener {
	return &Listener{client: client, status: status, logger: logger, timeout: 10 * time.Second}
}

// Start subscribes to the meters topic.
func (l *Listener) Start() error {
	return l.client.Subscribe(TopicMeters, 1, l.handle)
}

// Close disconnects from the broker.
func (l *Listener) Close() {
	l.client.Close()
}

func (l *Listener) handle(topic string, payload []byte) {
	var msg MeterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.logger.WithField("topic", topic).WithError(err).Warn("meter message: invalid JSON")
		return
	}
	if msg.ItemID == "" {
		l.logger.WithField("topic", topic).Warn("meter message: missing item_id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	meters := models.MeterReadings{Hours: msg.Hours, Cycles: msg.Cycles, Flights: msg.Flights}
	report, err := l.status.UpdateItemMeters(ctx, msg.ItemID, msg.ItemType, meters)
	if err != nil {
		l.logger.WithField("item_id", msg.ItemID).WithError(err).Error("meter update failed")
		return
	}
	if failed := report.Failed(); len(failed) > 0 {
		l.logger.WithFields(log.Fields{
			"item_id": msg.ItemID,
			"failed":  len(failed),
		}).Warn("meter update: partial recompute failure")
	}
}

// FormatMeterPayload creates the JSON payload for a meter reading.
func FormatMeterPayload(msg MeterMessage) ([]byte, error) {
	if msg.ItemID == "" {
		return nil, fmt.Errorf("item_id is required")
	}
	return json.Marshal(msg)
}

// MeterTopic returns the concrete publish topic for an item.
func MeterTopic(itemID string) string {
	return "fleet/" + itemID + "/meters"
}
