package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps files in a MongoDB GridFS bucket; files are served by
// the API under BaseURL.
type GridFSStore struct {
	client  *mongo.Client
	bucket  *gridfs.Bucket
	BaseURL string
}

// NewGridFSStore connects to MongoDB and opens the "uploads" bucket.
func NewGridFSStore(ctx context.Context, uri, database, baseURL string) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName("uploads"))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &GridFSStore{client: client, bucket: bucket, BaseURL: baseURL}, nil
}

func (s *GridFSStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	id, err := s.bucket.UploadFromStream(name, r)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (s *GridFSStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	stream, err := s.bucket.OpenDownloadStream(objID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *GridFSStore) URL(id string) string {
	return s.BaseURL + "/" + id
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
