package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/aerofleet/fleet-maintenance/internal/auth"
	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/handlers"
	"github.com/aerofleet/fleet-maintenance/internal/ingest"
	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
)

func listenAddr() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

func newLogger() *log.Logger {
	logger := log.New()
	if os.Getenv("LOG_FORMAT") == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func main() {
	_ = godotenv.Load()
	logger := newLogger()

	client, err := db.ConnectMongo()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MongoDB")
	}
	database := client.Database(db.DatabaseName())

	schedules := &db.MongoScheduleCollection{Collection: database.Collection("maintenance_schedules")}
	items := &db.MongoItemCollection{Collection: database.Collection("items")}
	records := &db.MongoRecordCollection{Collection: database.Collection("maintenance_records")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		logger.WithError(err).Fatal("failed to create auth service")
	}

	registry := maintenance.NewRegistry(schedules, logger)
	statusStore := maintenance.NewStatusStore(items, schedules, logger)
	ledger := maintenance.NewLedger(records, statusStore, logger)
	grounding := maintenance.NewGrounding(items, logger)
	dashboard := maintenance.NewDashboard(items, records, logger)

	authHandler := handlers.NewAuthHandler(authService, users)
	scheduleHandler := handlers.NewScheduleHandler(registry)
	itemHandler := handlers.NewItemHandler(items, statusStore, grounding)
	recordHandler := handlers.NewRecordHandler(ledger)
	dashboardHandler := handlers.NewDashboardHandler(dashboard)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authHandler.UpdateProfile)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)

	mux.HandleFunc("POST /api/schedules", scheduleHandler.Create)
	mux.HandleFunc("GET /api/schedules", scheduleHandler.List)
	mux.HandleFunc("GET /api/schedules/{id}", scheduleHandler.Get)
	mux.HandleFunc("PUT /api/schedules/{id}", scheduleHandler.Update)
	mux.HandleFunc("DELETE /api/schedules/{id}", scheduleHandler.Delete)

	mux.HandleFunc("POST /api/items", itemHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemHandler.Get)
	mux.HandleFunc("POST /api/items/{id}/schedules/{scheduleId}", itemHandler.ApplySchedule)
	mux.HandleFunc("DELETE /api/items/{id}/schedules/{scheduleId}", itemHandler.RemoveSchedule)
	mux.HandleFunc("PUT /api/items/{id}/meters", itemHandler.UpdateMeters)
	mux.HandleFunc("POST /api/items/{id}/recalculate", itemHandler.Recalculate)
	mux.HandleFunc("POST /api/items/{id}/ground", itemHandler.Ground)
	mux.HandleFunc("POST /api/items/{id}/unground", itemHandler.Unground)
	mux.HandleFunc("GET /api/items/{id}/history", recordHandler.History)
	mux.HandleFunc("POST /api/items/{id}/maintenance", recordHandler.RecordMaintenance)

	mux.HandleFunc("POST /api/records", recordHandler.Create)
	mux.HandleFunc("POST /api/records/form", recordHandler.FromForm)
	mux.HandleFunc("GET /api/records/{id}", recordHandler.Get)
	mux.HandleFunc("PUT /api/records/{id}", recordHandler.Update)
	mux.HandleFunc("DELETE /api/records/{id}", recordHandler.Delete)
	mux.HandleFunc("POST /api/records/{id}/complete", recordHandler.Complete)

	mux.HandleFunc("GET /api/dashboard/maintenance", dashboardHandler.Stats)
	mux.HandleFunc("GET /api/dashboard/due-soon", dashboardHandler.DueSoon)
	mux.HandleFunc("GET /api/dashboard/overdue", dashboardHandler.Overdue)
	mux.HandleFunc("GET /api/dashboard/upcoming", dashboardHandler.Upcoming)
	mux.HandleFunc("GET /api/dashboard/recent", dashboardHandler.Recent)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mqttClient, err := ingest.NewRealClient(broker, "fleet-maintenance")
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to MQTT broker")
		}
		listener := ingest.NewListener(mqttClient, statusStore, logger)
		if err := listener.Start(); err != nil {
			logger.WithError(err).Fatal("failed to subscribe to meter readings")
		}
		defer listener.Close()
		logger.WithField("broker", broker).Info("listening for meter readings")
	}

	authMw := middleware.NewAuthMiddleware(authService)
	handler := middleware.Metrics(authMw.Authenticate(mux))

	addr := listenAddr()
	logger.WithField("addr", addr).Info("HTTP server listening")
	logger.Fatal(http.ListenAndServe(addr, handler))
}
