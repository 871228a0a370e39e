package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"originality/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client erstellt einen Client für den S3-kompatiblen Artefakt-Store.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ReportS3URL,
				SigningRegion:     cfg.ReportS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.ReportS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ReportS3Key, cfg.ReportS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// UploadFile lädt ein Binär-Artefakt unverändert (keine Rekompression) in
// den Bucket und gibt die dauerhafte Referenz zurück.
func UploadFile(ctx context.Context, client *s3.Client, bucket, key string, data []byte, contentType string, cfg *config.Config) (string, error) {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	link := fmt.Sprintf("%s/%s/%s", cfg.ReportS3URL, bucket, key)
	return link, nil
}

// DownloadFile holt ein Artefakt als Bytes zurück.
func DownloadFile(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// PresignGet erzeugt eine kurzlebige Abruf-URL für ein Artefakt.
func PresignGet(ctx context.Context, client *s3.Client, bucket, key string, expires time.Duration) (string, error) {
	presigner := s3.NewPresignClient(client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Schlüssel-Layout im Bucket. Die Submission-ID steckt im Pfad, damit der
// Sweeper Artefakte ohne DB-Lookup ihrer Submission zuordnen kann.
//
//	submissions/<submission-id>/<filename>   Originaldatei
//	reports/<submission-id>/similarity.pdf   Similarity-Report
//	reports/<submission-id>/ai.pdf           AI-Report

// OriginalKey gibt den Objektschlüssel der Originaldatei zurück.
func OriginalKey(submissionID, filename string) string {
	return fmt.Sprintf("submissions/%s/%s", submissionID, sanitizeFilename(filename))
}

// ReportKey gibt den Objektschlüssel eines Report-Artefakts zurück.
func ReportKey(submissionID, kind string) string {
	return fmt.Sprintf("reports/%s/%s.pdf", submissionID, kind)
}

// SubmissionIDFromKey extrahiert die Submission-ID aus einem Objektschlüssel
// des obigen Layouts; leer, wenn der Schlüssel nicht dazu passt.
func SubmissionIDFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	if parts[0] != "submissions" && parts[0] != "reports" {
		return ""
	}
	return parts[1]
}

// sanitizeFilename entschärft Pfadbestandteile im Original-Dateinamen.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "upload"
	}
	return name
}
