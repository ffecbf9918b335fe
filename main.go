package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"target-hand/config"
	"target-hand/models"
	"target-hand/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	lookupsCounter       prometheus.Counter
	emptyLookupsCounter  prometheus.Counter
	poolInUseGauge       prometheus.Gauge
	poolIdleGauge        prometheus.Gauge
	poolWaitCountGauge   prometheus.Gauge
	poolWaitSecondsGauge prometheus.Gauge
)

func init() {
	lookupsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "target_lookups_total",
			Help: "Total number of successful target lookups.",
		},
	)
	emptyLookupsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "target_lookups_empty_total",
			Help: "Total number of lookups that returned no targets.",
		},
	)
	poolInUseGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_connections_in_use",
			Help: "Database connections currently in use.",
		},
	)
	poolIdleGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_connections_idle",
			Help: "Idle database connections in the pool.",
		},
	)
	poolWaitCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_wait_count",
			Help: "Cumulative number of waits for a free connection.",
		},
	)
	poolWaitSecondsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_wait_seconds",
			Help: "Cumulative time spent waiting for a free connection.",
		},
	)
	prometheus.MustRegister(lookupsCounter, emptyLookupsCounter,
		poolInUseGauge, poolIdleGauge, poolWaitCountGauge, poolWaitSecondsGauge)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	// Der Pool wird genau einmal pro Prozess aufgebaut und über alle
	// Requests hinweg wiederverwendet.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to targets database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logging.Fatal("Failed to access underlying sql.DB", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns())
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute) // Überlauf-Verbindungen wieder abbauen
	logging.Info("Successfully connected to targets database.",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("max_overflow", cfg.PoolMaxOverflow),
		zap.Duration("pool_timeout", cfg.PoolTimeout))

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Drug{}, &models.Target{})

	// Setup Services
	lookupService := services.NewLookupService(cfg, db, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupTargetRoutes(router, lookupService, logging)
	setupDrugRoutes(router, lookupService, logging)
	setupHealthRoutes(router, lookupService)

	// Setup Cron
	collectPoolStats(sqlDB)
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		collectPoolStats(sqlDB)
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// collectPoolStats spiegelt die Statistiken des Verbindungspools in die
// Prometheus-Gauges.
func collectPoolStats(sqlDB *sql.DB) {
	stats := sqlDB.Stats()
	poolInUseGauge.Set(float64(stats.InUse))
	poolIdleGauge.Set(float64(stats.Idle))
	poolWaitCountGauge.Set(float64(stats.WaitCount))
	poolWaitSecondsGauge.Set(stats.WaitDuration.Seconds())
}

func setupTargetRoutes(router *gin.Engine, lookup *services.LookupService, log *zap.Logger) {
	handle := func(c *gin.Context, drugbankID string) {
		if drugbankID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing drugbank_id parameter"})
			return
		}

		targets, err := lookup.TargetsForDrug(c.Request.Context(), drugbankID)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Error("No free database connection within pool timeout",
					zap.String("drugbank_id", drugbankID), zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database busy"})
				return
			}
			log.Error("Target lookup failed",
				zap.String("drugbank_id", drugbankID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		lookupsCounter.Inc()
		if len(targets) == 0 {
			// Unbekannte Kennung oder Wirkstoff ohne Targets, beides kein Fehler.
			emptyLookupsCounter.Inc()
		}

		// Bewusst ein Objekt statt eines nackten Arrays, damit später
		// weitere Schlüssel (z.B. Paginierungs-Metadaten) ergänzt werden
		// können, ohne Clients zu brechen.
		c.JSON(http.StatusOK, gin.H{"targets": targets})
	}

	// Query-Parameter-Variante wie im ursprünglichen Endpoint, plus
	// RESTful Pfad-Variante.
	router.GET("/targets", func(c *gin.Context) {
		handle(c, c.Query("drugbank_id"))
	})
	router.GET("/targets/:drugbank_id", func(c *gin.Context) {
		handle(c, c.Param("drugbank_id"))
	})
}

func setupDrugRoutes(router *gin.Engine, lookup *services.LookupService, log *zap.Logger) {
	router.GET("/drugs/:drugbank_id", func(c *gin.Context) {
		drugbankID := c.Param("drugbank_id")
		drug, err := lookup.DrugByProvidedID(c.Request.Context(), drugbankID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "drug not found"})
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database busy"})
				return
			}
			log.Error("Drug lookup failed", zap.String("drugbank_id", drugbankID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, drug)
	})
}

func setupHealthRoutes(router *gin.Engine, lookup *services.LookupService) {
	router.GET("/healthz", func(c *gin.Context) {
		if err := lookup.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
