package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials indicates the backing store token/config is
	// absent. This is a configuration failure for the dependent
	// feature, not a retryable condition.
	ErrMissingCredentials = errors.New("backing store credentials are not configured")

	// ErrObjectNotFound indicates the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found in backing store")
)

// APIError reports a failed HTTP call against the backing store.
type APIError struct {
	Op     string
	Path   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backing store %s %q failed with status %d", e.Op, e.Path, e.Status)
}

// Store 抽象两种后端存储（Blob 对象存储 / GitHub 仓库）共有的能力。
// ListDirectory 对不存在的路径返回空列表而不是错误。
type Store interface {
	// ListDirectory returns the immediate children of path.
	ListDirectory(ctx context.Context, path string) ([]AssetEntry, error)
	// ListTree returns every file under prefix, recursively.
	ListTree(ctx context.Context, prefix string) ([]AssetEntry, error)
	// ReadFile returns the file content, or ErrObjectNotFound.
	ReadFile(ctx context.Context, path string) (string, error)
	// RawURL builds the public URL serving the file at path.
	RawURL(path string) string
	// Put writes content at path, overwriting any existing object.
	Put(ctx context.Context, path string, content []byte, contentType string) (AssetEntry, error)
	// Delete removes the object at path, or returns ErrObjectNotFound.
	Delete(ctx context.Context, path string) error
}

// BatchPut is one staged file write inside a batch publish.
type BatchPut struct {
	Path        string
	Content     []byte
	ContentType string
}

// BatchWriter is implemented by stores that can apply several writes
// and deletions atomically (the Git-backed store commits them as a
// single commit).
type BatchWriter interface {
	PublishBatch(ctx context.Context, message string, puts []BatchPut, deletePaths []string) error
}
