package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"blood-bank/config"
	"blood-bank/services"
	"blood-bank/storage"
)

func main() {
	log.Println("Starte Backup-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}
	if !cfg.S3Enabled() {
		log.Fatalf("S3_URL und S3_BUCKET müssen für Backups gesetzt sein")
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 1. Zugangsdaten und Spendertabelle
	creds := config.ResolveCredentials(ctx, config.DefaultSources(ctx, cfg, logging)...)
	gw, err := storage.Open(ctx, cfg, creds, logging)
	if err != nil {
		log.Fatalf("Fehler beim Öffnen der Spendertabelle: %v", err)
	}

	// 2. S3-Store erstellen
	store, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	// 3. Sicherung hochladen und alte Backups rotieren
	link, err := services.NewBackupService(gw, store, cfg.KeepBackups, logging).Snapshot(ctx)
	if err != nil {
		log.Fatalf("Fehler beim Backup: %v", err)
	}
	log.Printf("Backup erfolgreich nach %s hochgeladen", link)

	log.Println("Backup-Prozess erfolgreich abgeschlossen.")
}
