package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pageza/nutrilog/backend/config"
	"github.com/pageza/nutrilog/backend/internal/logger"
)

const (
	imageKeyPrefix     = "food-images"
	presignedURLExpiry = 15 * time.Minute
)

// S3PutAPI is the subset of the S3 client used to store photos.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner returns a temporary download URL for an object key.
type Presigner func(ctx context.Context, key string, expiry time.Duration) (string, error)

// ImageArchive keeps submitted meal photos in S3 next to the entries they
// produced.
type ImageArchive struct {
	client  S3PutAPI
	bucket  string
	presign Presigner
	log     *logger.Logger
}

// NewImageArchive creates an archive backed by the configured bucket.
func NewImageArchive(s3Config *config.S3Config, log *logger.Logger) *ImageArchive {
	return NewImageArchiveWithClient(s3Config.Client, s3Config.BucketName, s3Config.GeneratePresignedURL, log)
}

func NewImageArchiveWithClient(client S3PutAPI, bucket string, presign Presigner, log *logger.Logger) *ImageArchive {
	if log == nil {
		log = logger.NewNop()
	}
	return &ImageArchive{client: client, bucket: bucket, presign: presign, log: log}
}

// ImageKey returns the object key for a submission's photo.
func ImageKey(userID, submissionID uuid.UUID, data []byte) string {
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s/%s%s", imageKeyPrefix, userID, submissionID, ext)
}

// Archive uploads the photo and returns its object key.
func (a *ImageArchive) Archive(ctx context.Context, userID, submissionID uuid.UUID, img *ImageUpload) (string, error) {
	key := ImageKey(userID, submissionID, img.Data)

	contentType := mimetype.Detect(img.Data).String()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"user-id":       userID.String(),
			"submission-id": submissionID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	a.log.Debug("Archived meal image", "key", key, "bytes", len(img.Data))
	return key, nil
}

// PresignURL returns a short-lived download URL for an archived photo.
func (a *ImageArchive) PresignURL(ctx context.Context, key string) (string, error) {
	if a.presign == nil {
		return "", fmt.Errorf("presigning is not configured")
	}
	return a.presign(ctx, key, presignedURLExpiry)
}
