package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/app"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/config"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/controllers"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/db"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/routes"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/services"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
	"github.com/tamtamyoyo/nawras-crm-sub001/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize crm-core:", err)
	}
	defer application.Close()

	// Data layer
	pgStore := store.NewPostgresStore(application.DB)
	concurrencyCtx := db.NewConcurrencyContext()
	coreService := db.NewService(pgStore, concurrencyCtx, cfg.Retry)

	// Services
	recordService := services.NewRecordService(coreService)

	// Controllers
	healthController := controllers.NewHealthController(application.DB)
	recordController := controllers.NewRecordController(recordService)

	// Router setup
	router := mux.NewRouter()
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.RecordCreate, recordController.CreateRecordHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.RecordByID, recordController.UpdateRecordHandler).Methods(http.MethodPut)
	router.HandleFunc(routes.RecordByID, recordController.DeleteRecordHandler).Methods(http.MethodDelete)
	router.HandleFunc(routes.RecordStatus, recordController.RecordStatusHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.RecordBatch, recordController.BatchUpdateHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.ConflictResolve, recordController.ResolveConflictHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.ConcurrencyMetrics, recordController.MetricsHandler).Methods(http.MethodGet)

	// Periodic metrics snapshot for the logs
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.MetricsSnapshotCronSpec, func() {
		snap := concurrencyCtx.Metrics.Snapshot()
		utils.Logger.WithField("metrics", snap).Info("Concurrency metrics snapshot")
	}); err != nil {
		utils.Logger.WithError(err).Fatal("Invalid METRICS_SNAPSHOT_CRON spec")
	}
	c.Start()
	defer c.Stop()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("crm-core failed to start:", err)
	}
}
