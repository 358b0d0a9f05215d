package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes files under Dir; the server exposes Dir at BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	id := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	f, err := os.OpenFile(filepath.Join(s.Dir, id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return id, f.Close()
}

func (s *LocalStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	// ids are flat file names; reject anything that walks the tree.
	if id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.Dir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStore) URL(id string) string {
	return s.BaseURL + "/" + id
}
