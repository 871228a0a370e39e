// Eigenständiges Binary für den Sweep verwaister Artefakte, z.B. für einen
// externen Scheduler. Dieselbe Logik läuft im Server auch per Cron.
package main

import (
	"context"
	"log"

	"originality/config"
	"originality/services"
	"originality/storage"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	log.Println("Starte Sweep verwaister Artefakte...")

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	sweeper := services.NewSweeper(cfg, db, s3Client, logging)
	removed, err := sweeper.Run(context.Background())
	if err != nil {
		log.Fatalf("Sweep fehlgeschlagen: %v", err)
	}

	log.Printf("Sweep abgeschlossen, %d verwaiste Objekte gelöscht.", removed)
}
