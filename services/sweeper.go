package services

import (
	"context"
	"time"

	"originality/config"
	"originality/models"
	"originality/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper räumt verwaiste Artefakte auf: Objekte im Bucket, deren
// Submission nie persistiert wurde (Pipeline nach dem Upload gescheitert).
// Läuft periodisch per Cron und als eigenständiges Binary; nie inline in
// der Pipeline — ein späterer Stage-Fehler lässt Uploads bewusst liegen.
type Sweeper struct {
	Config *config.Config
	DB     *gorm.DB
	S3     *s3.Client
	Logger *zap.Logger
}

// NewSweeper erstellt eine neue Sweeper-Instanz.
func NewSweeper(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, logger *zap.Logger) *Sweeper {
	return &Sweeper{Config: cfg, DB: db, S3: s3Client, Logger: logger}
}

// Run listet den Bucket, prüft jedes Objekt jenseits der Schonfrist gegen
// die Submissions-Tabelle und löscht Objekte ohne persistierten Datensatz.
// Gibt die Anzahl gelöschter Objekte zurück.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.Config.SweepGracePeriod)
	removed := 0

	// Bereits geprüfte Submission-IDs innerhalb eines Laufs cachen; ein
	// verwaister Upload hinterlässt bis zu drei Objekte mit derselben ID.
	known := make(map[string]bool)

	var continuation *string
	for {
		out, err := s.S3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Config.ReportS3Bucket),
			ContinuationToken: continuation,
		})
		if err != nil {
			return removed, err
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				continue
			}
			if obj.LastModified.After(cutoff) {
				continue // Schonfrist: die Pipeline könnte noch laufen
			}

			id := storage.SubmissionIDFromKey(*obj.Key)
			if id == "" {
				continue
			}

			persisted, checked := known[id]
			if !checked {
				var count int64
				if err := s.DB.WithContext(ctx).Model(&models.Submission{}).
					Where("submission_id = ?", id).
					Count(&count).Error; err != nil {
					return removed, err
				}
				persisted = count > 0
				known[id] = persisted
			}
			if persisted {
				continue
			}

			s.Logger.Info("Lösche verwaistes Artefakt", zap.String("key", *obj.Key))
			if _, err := s.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.Config.ReportS3Bucket),
				Key:    obj.Key,
			}); err != nil {
				s.Logger.Error("Löschen fehlgeschlagen", zap.String("key", *obj.Key), zap.Error(err))
				continue
			}
			removed++
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	return removed, nil
}
