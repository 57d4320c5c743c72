package repository

import "context"

//go:generate go run go.uber.org/mock/mockgen@latest -source=document_store.go -destination=../../mocks/document_store.go -package=mocks

// DocumentStore writes and removes opaque blobs in object storage.
// Deleting a missing key is not an error.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}
