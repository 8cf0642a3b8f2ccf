package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"blood-bank/models"
)

// donorRecord ist die Tabellenzeile im Postgres-Backend. Position bildet die Zeilenreihenfolge des Sheets nach.
type donorRecord struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Position   int       `gorm:"index;not null"`
	DonorID    string    `gorm:"column:donor_id;index"`
	Name       string    `gorm:"not null"`
	Age        int       `gorm:"not null"`
	BloodGroup string    `gorm:"index;not null"`
	Contact    string    `gorm:"not null"`
	Location   string    `gorm:"index;not null"`
	Version    int       `gorm:"not null;default:0"`
}

// TableName gibt explizit den Tabellennamen an.
func (donorRecord) TableName() string {
	return "donors"
}

type downloadLogRecord struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	RecipientEmail   string `gorm:"not null"`
	BloodGroupFilter string
	LocationFilter   string
	Timestamp        string
}

// TableName gibt explizit den Tabellennamen an.
func (downloadLogRecord) TableName() string {
	return "download_logs"
}

func recordFromDonor(d models.Donor, position int) donorRecord {
	return donorRecord{
		Position:   position,
		DonorID:    d.ID,
		Name:       d.Name,
		Age:        d.Age,
		BloodGroup: d.BloodGroup,
		Contact:    d.Contact,
		Location:   d.Location,
		Version:    d.Version,
	}
}

func (r donorRecord) donor(row int) models.Donor {
	return models.Donor{
		Row:        row,
		ID:         r.DonorID,
		Name:       r.Name,
		Age:        r.Age,
		BloodGroup: r.BloodGroup,
		Contact:    r.Contact,
		Location:   r.Location,
		Version:    r.Version,
	}
}

// PostgresGateway bildet die Tabellen-Semantik (positionale Zeilen) auf Postgres ab.
type PostgresGateway struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresGateway verbindet sich mit der Datenbank und migriert die Tabellen.
func NewPostgresGateway(dsn string, logger *zap.Logger) (*PostgresGateway, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, unavailable("connect database", err)
	}
	if err := db.AutoMigrate(&donorRecord{}, &downloadLogRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &PostgresGateway{db: db, logger: logger}, nil
}

func (g *PostgresGateway) Append(ctx context.Context, d models.Donor) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&donorRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return err
		}
		rec := recordFromDonor(d, last+1)
		return tx.Create(&rec).Error
	})
	if err != nil {
		return unavailable("append donor", err)
	}
	return nil
}

func (g *PostgresGateway) ReadAll(ctx context.Context) ([]models.Donor, error) {
	var recs []donorRecord
	if err := g.db.WithContext(ctx).Order("position asc").Find(&recs).Error; err != nil {
		return nil, unavailable("read donors", err)
	}
	donors := make([]models.Donor, len(recs))
	for i, r := range recs {
		donors[i] = r.donor(i + 1)
	}
	return donors, nil
}

// atIndex lädt die Zeile an der 1-basierten Position der sortierten Tabelle.
func atIndex(tx *gorm.DB, index int) (donorRecord, error) {
	var rec donorRecord
	if index < 1 {
		return rec, fmt.Errorf("%w: index %d", ErrRowNotFound, index)
	}
	err := tx.Order("position asc").Offset(index - 1).Limit(1).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("%w: index %d", ErrRowNotFound, index)
	}
	return rec, err
}

func (g *PostgresGateway) UpdateRow(ctx context.Context, index int, d models.Donor) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := atIndex(tx, index)
		if err != nil {
			return err
		}
		return tx.Model(&rec).Updates(map[string]interface{}{
			"donor_id":    d.ID,
			"name":        d.Name,
			"age":         d.Age,
			"blood_group": d.BloodGroup,
			"contact":     d.Contact,
			"location":    d.Location,
			"version":     d.Version,
		}).Error
	})
	return g.wrap("update donor", err)
}

func (g *PostgresGateway) DeleteRow(ctx context.Context, index int) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := atIndex(tx, index)
		if err != nil {
			return err
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return err
		}
		return tx.Model(&donorRecord{}).
			Where("position > ?", rec.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
	return g.wrap("delete donor", err)
}

func (g *PostgresGateway) AppendLog(ctx context.Context, entry models.DownloadLog) error {
	rec := downloadLogRecord{
		RecipientEmail:   entry.RecipientEmail,
		BloodGroupFilter: entry.BloodGroupFilter,
		LocationFilter:   entry.LocationFilter,
		Timestamp:        entry.Timestamp,
	}
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return unavailable("append log", err)
	}
	return nil
}

func (g *PostgresGateway) wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrRowNotFound) {
		return err
	}
	g.logger.Error("Database operation failed", zap.String("op", op), zap.Error(err))
	return unavailable(op, err)
}
