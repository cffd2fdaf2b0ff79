// Command simulator publishes synthetic meter readings for a set of items
// over MQTT, driving the maintenance status recompute path end to end.
package main

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/aerofleet/fleet-maintenance/internal/ingest"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// itemState tracks the simulated cumulative meters of one item.
type itemState struct {
	id       string
	itemType models.ItemType
	hours    float64
	cycles   float64
	flights  float64
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()
	logger := log.New()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	itemIDs := strings.Split(os.Getenv("SIM_ITEM_IDS"), ",")
	if len(itemIDs) == 1 && itemIDs[0] == "" {
		logger.Fatal("SIM_ITEM_IDS is required (comma-separated item ids)")
	}
	itemType := models.ItemType(os.Getenv("SIM_ITEM_TYPE"))
	if itemType == "" {
		itemType = models.ItemTypeAircraft
	}
	interval := envDuration("SIM_INTERVAL", 30*time.Second)
	startHours := envFloat("SIM_START_HOURS", 0)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-maintenance-simulator").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		logger.Fatal("MQTT connection timeout")
	}
	if err := token.Error(); err != nil {
		logger.WithError(err).Fatal("failed to connect to MQTT broker")
	}
	defer client.Disconnect(1000)

	items := make([]*itemState, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, &itemState{id: strings.TrimSpace(id), itemType: itemType, hours: startHours})
	}
	logger.WithFields(log.Fields{"broker": broker, "items": len(items), "interval": interval}).Info("simulator started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		for _, item := range items {
			// A tick is one short flight leg: some hours, one cycle.
			item.hours += 0.5 + rand.Float64()*1.5
			item.cycles++
			item.flights++

			msg := ingest.MeterMessage{
				ItemID:     item.id,
				ItemType:   item.itemType,
				Hours:      &item.hours,
				Cycles:     &item.cycles,
				Flights:    &item.flights,
				RecordedAt: time.Now().UTC(),
			}
			payload, err := ingest.FormatMeterPayload(msg)
			if err != nil {
				logger.WithError(err).Warn("format meter payload")
				continue
			}
			pub := client.Publish(ingest.MeterTopic(item.id), 1, false, payload)
			if !pub.WaitTimeout(5 * time.Second) {
				logger.WithField("item_id", item.id).Warn("publish timeout")
				continue
			}
			if err := pub.Error(); err != nil {
				logger.WithField("item_id", item.id).WithError(err).Warn("publish failed")
				continue
			}
			logger.WithFields(log.Fields{
				"item_id": item.id,
				"hours":   item.hours,
				"cycles":  item.cycles,
			}).Debug("meter reading published")
		}
	}
}
