package service

import (
	"context"
	"fmt"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/publish"
	"pressroom/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mediaURLTTL is how long presigned media links stay fetchable; long enough
// for a platform to mirror the asset, short enough not to leak.
const mediaURLTTL = 15 * time.Minute

// ContentService resolves a content reference into the snapshot handed to
// platform adapters, presigning media asset URLs from object storage.
type ContentService interface {
	ResolveSnapshot(ctx context.Context, contentID string) (*model.ContentSnapshot, error)
}

type contentService struct {
	repo    repository.ContentRepository
	presign *s3.PresignClient
	bucket  string
}

// NewContentService creates a new ContentService.
func NewContentService(repo repository.ContentRepository, s3Client *s3.Client, bucket string) ContentService {
	return &contentService{
		repo:    repo,
		presign: s3.NewPresignClient(s3Client),
		bucket:  bucket,
	}
}

func (s *contentService) ResolveSnapshot(ctx context.Context, contentID string) (*model.ContentSnapshot, error) {
	content, err := s.repo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		// A dangling content reference cannot recover by retrying.
		return nil, &publish.TerminalExecutionError{Reason: fmt.Sprintf("content %s not found", contentID)}
	}

	snapshot := &model.ContentSnapshot{
		ID:       content.ID,
		TenantID: content.TenantID,
		Title:    content.Title,
		Body:     content.Body,
	}
	for _, key := range content.MediaKeys {
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(mediaURLTTL))
		if err != nil {
			return nil, fmt.Errorf("presign media %s for content %s: %w", key, contentID, err)
		}
		snapshot.MediaURLs = append(snapshot.MediaURLs, req.URL)
	}
	return snapshot, nil
}
