package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage-Backends für die Spendertabelle.
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"sheets"`

	// Google Sheets
	SpreadsheetID string `envconfig:"SPREADSHEET_ID"`
	DonorSheet    string `envconfig:"DONOR_SHEET" default:"Sheet1"`
	LogSheet      string `envconfig:"LOG_SHEET" default:"Sheet2"`

	// Postgres-Backend (Altbestand vor der Migration auf Sheets)
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"blood_bank"`

	SMTPHost string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"465"`

	// Secret Store; leer = nur Umgebungsvariablen
	SecretsManagerSecretID string `envconfig:"SECRETS_MANAGER_SECRET_ID"`
	AWSRegion              string `envconfig:"AWS_REGION" default:"eu-central-1"`

	// S3-kompatibler Speicher für Export-Archiv und Backups; leerer Bucket = aus
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3Bucket string `envconfig:"S3_BUCKET"`

	ArchiveExports     bool   `envconfig:"ARCHIVE_EXPORTS" default:"false"`
	BackupCronSchedule string `envconfig:"BACKUP_CRON_SCHEDULE"`
	KeepBackups        int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled meldet, ob ein Bucket für Archiv und Backups konfiguriert ist.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3URL != ""
}

// Validate prüft Kombinationen, die envconfig allein nicht abdeckt.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendSheets, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.KeepBackups < 1 {
		return fmt.Errorf("KEEP_BACKUPS must be at least 1, got %d", c.KeepBackups)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
