package services

import (
	"context"

	"originality/config"
	"originality/models"
	"originality/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

// S3ArtifactStore ist die produktive ArtifactStore-Implementierung über den
// S3-kompatiblen Bucket.
type S3ArtifactStore struct {
	Client *s3.Client
	Config *config.Config
}

func (s *S3ArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return storage.UploadFile(ctx, s.Client, s.Config.ReportS3Bucket, key, data, contentType, s.Config)
}

// GormRecordStore ist die produktive RecordStore-Implementierung über
// PostgreSQL.
type GormRecordStore struct {
	DB *gorm.DB
}

func (g *GormRecordStore) Insert(ctx context.Context, sub *models.Submission) error {
	return g.DB.WithContext(ctx).Create(sub).Error
}

// ListByUser gibt die Submissions eines Benutzers zurück, neueste zuerst.
func (g *GormRecordStore) ListByUser(ctx context.Context, userID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := g.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&subs).Error
	return subs, err
}
