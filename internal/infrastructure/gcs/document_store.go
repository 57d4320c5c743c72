// Package gcs stores KYC documents in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/domain/repository"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

type DocumentStore struct {
	client *storage.Client
	bucket string
}

func NewDocumentStore(client *storage.Client, bucket string) *DocumentStore {
	return &DocumentStore{client: client, bucket: bucket}
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := helpers.UploadObject(ctx, s.client, s.bucket, key, contentType, data); err != nil {
		return classify(fmt.Errorf("gcs put %s: %w", key, err))
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := helpers.DeleteObject(ctx, s.client, s.bucket, key); err != nil {
		return classify(fmt.Errorf("gcs delete %s: %w", key, err))
	}
	return nil
}

// classify treats 5xx, 429 and transport failures as transient and any other
// API error as a refusal.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%w: %w", entity.ErrStoreRejected, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %w", entity.ErrStoreRejected, err)
	}
	return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
}
