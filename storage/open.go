package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"blood-bank/config"
)

// Open baut das Gateway für das konfigurierte Backend. Fehlt etwas, liefert es
// zusätzlich zum Fehler ein Disabled-Gateway, mit dem der Aufrufer weiterarbeiten kann.
func Open(ctx context.Context, cfg *config.Config, creds config.Credentials, logger *zap.Logger) (Gateway, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Info("Using in-memory donor table")
		return NewMemory(), nil

	case config.BackendPostgres:
		gw, err := NewPostgresGateway(cfg.DSN(), logger)
		if err != nil {
			return Disabled{Reason: "postgres unreachable"}, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("Successfully connected to donor database.")
		return gw, nil

	default:
		if !creds.SheetsEnabled() {
			return Disabled{Reason: "Google service account credentials not found"},
				fmt.Errorf("%w: Google service account credentials not found", ErrNotConfigured)
		}
		gw, err := NewSheetsGateway(ctx, creds.ServiceAccountJSON, cfg.SpreadsheetID, cfg.DonorSheet, cfg.LogSheet, logger)
		if err != nil {
			return Disabled{Reason: "sheets client unavailable"}, err
		}
		if err := gw.EnsureHeaders(ctx); err != nil {
			// Nur Warnung: der Zugriff kann später wieder funktionieren.
			logger.Warn("Could not verify sheet headers", zap.Error(err))
		}
		logger.Info("Connected to spreadsheet", zap.String("service_account", creds.ServiceAccountEmail))
		return gw, nil
	}
}
