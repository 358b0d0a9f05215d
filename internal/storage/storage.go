// Package storage stores uploaded images on local disk or in MongoDB GridFS.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("file not found")

// Store is a blob store for uploaded files.
type Store interface {
	// Save stores r under a generated id derived from name's extension.
	Save(ctx context.Context, name string, r io.Reader) (id string, err error)
	// Open returns the stored bytes. Callers must close the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	// URL is the public path a client fetches the file from.
	URL(id string) string
}
