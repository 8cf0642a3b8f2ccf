package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"blood-bank/config"
	"blood-bank/providers"
	"blood-bank/providers/smtp"
	"blood-bank/services"
	"blood-bank/storage"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authorized(c, cfg) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// authorized ist true, wenn kein Schlüssel konfiguriert ist oder der Header passt.
func authorized(c *gin.Context, cfg *config.Config) bool {
	return cfg.APISecretKey == "" || c.GetHeader("X-API-KEY") == cfg.APISecretKey
}

// newRouter verdrahtet alle Routen. Getrennt von main, damit Tests ohne Netzwerk auskommen.
func newRouter(cfg *config.Config, donors *services.DonorService, exports *services.ExportService, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"storage": cfg.StorageBackend,
			"mail":    exports.Mailer != nil,
		})
	})

	setupDonorRoutes(router, cfg, donors, log)
	setupExportRoutes(router, cfg, exports, log)
	setupInfoRoutes(router, donors, log)
	return router
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
	ctx := context.Background()

	creds := config.ResolveCredentials(ctx, config.DefaultSources(ctx, cfg, logging)...)
	for _, p := range creds.Problems {
		logging.Warn("Credential problem", zap.String("problem", p))
	}

	gw, err := storage.Open(ctx, cfg, creds, logging)
	if err != nil {
		// Die Oberfläche bleibt erreichbar und zeigt leere Listen mit Warnung.
		logging.Error("Donor storage disabled", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}

	var mailer providers.Mailer
	if creds.MailEnabled() {
		mailer = smtp.NewMailer(cfg.SMTPHost, cfg.SMTPPort, creds.EmailSender, creds.EmailPassword, logging)
	} else {
		logging.Warn("Email credentials not found, exports disabled")
	}

	var store *storage.ObjectStore
	var archive services.Archiver
	if cfg.S3Enabled() {
		store, err = storage.NewObjectStore(ctx, cfg)
		if err != nil {
			logging.Error("S3 client creation failed", zap.Error(err))
		} else if cfg.ArchiveExports {
			archive = store
		}
	}

	donorService := services.NewDonorService(gw, logging)
	exportService := services.NewExportService(gw, mailer, archive, logging)

	cronScheduler := cron.New()
	if cfg.BackupCronSchedule != "" && store != nil {
		backupService := services.NewBackupService(gw, store, cfg.KeepBackups, logging)
		_, err := cronScheduler.AddFunc(cfg.BackupCronSchedule, func() {
			logging.Info("Running scheduled backup...")
			link, err := backupService.Snapshot(context.Background())
			if err != nil {
				backupsTotal.WithLabelValues("failed").Inc()
				logging.Error("Backup job failed", zap.Error(err))
				return
			}
			backupsTotal.WithLabelValues("ok").Inc()
			logging.Info("Backup job completed", zap.String("link", link))
		})
		if err != nil {
			logging.Fatal("Invalid BACKUP_CRON_SCHEDULE", zap.String("schedule", cfg.BackupCronSchedule), zap.Error(err))
		}
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	router := newRouter(cfg, donorService, exportService, logging)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageBackend))
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
