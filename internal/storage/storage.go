// Package storage provides scratch space for pipeline runs and optional
// publication of finished animations.
// It defines the Storage interface and implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines scratch and publication operations used by the pipeline.
type Storage interface {
	// MakeScratchDir creates a private directory for one pipeline run.
	// The prefix is used as a hint for the directory name.
	MakeScratchDir(ctx context.Context, prefix string) (dir string, err error)

	// RemoveScratchDir deletes a directory created by MakeScratchDir and
	// everything inside it.
	RemoveScratchDir(ctx context.Context, dir string) error

	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads a finished animation and returns its public URL.
	// Returns ErrS3NotConfigured if no remote store is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
