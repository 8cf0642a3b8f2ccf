package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"blood-bank/storage"
)

const backupPrefix = "backups/"

// ObjectStore ist der Teil des S3-Stores, den Backups brauchen.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// BackupService sichert die Spendertabelle mit allen Spalten als gzip-CSV und rotiert alte Sicherungen.
type BackupService struct {
	Gateway storage.Gateway
	Store   ObjectStore
	Keep    int
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewBackupService erstellt eine neue Instanz des BackupService.
func NewBackupService(gw storage.Gateway, store ObjectStore, keep int, logger *zap.Logger) *BackupService {
	return &BackupService{Gateway: gw, Store: store, Keep: keep, Logger: logger, Now: time.Now}
}

// Snapshot lädt die aktuelle Tabelle hoch und gibt den Link zurück.
func (b *BackupService) Snapshot(ctx context.Context) (string, error) {
	donors, err := b.Gateway.ReadAll(ctx)
	if err != nil {
		return "", storageError(err, "donor table unavailable")
	}
	data, err := EncodeBackupCSV(donors)
	if err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("%sdonors-%s.csv.gz", backupPrefix, b.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := b.Store.Put(ctx, key, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	b.Logger.Info("Backup uploaded", zap.String("key", key), zap.Int("donors", len(donors)))

	if err := b.rotate(ctx); err != nil {
		return link, fmt.Errorf("rotate backups: %w", err)
	}
	return link, nil
}

// rotate löscht alles außer den Keep neuesten Sicherungen. Einzelne Löschfehler werden nur geloggt.
func (b *BackupService) rotate(ctx context.Context) error {
	objects, err := b.Store.List(ctx, backupPrefix)
	if err != nil {
		return err
	}
	if len(objects) <= b.Keep {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})

	for _, obj := range objects[b.Keep:] {
		b.Logger.Info("Deleting old backup", zap.String("key", obj.Key))
		if err := b.Store.Delete(ctx, obj.Key); err != nil {
			b.Logger.Warn("Deleting old backup failed", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return nil
}
