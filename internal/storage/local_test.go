package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	id, err := store.Save(ctx, "Photo.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, ".jpg"))
	assert.Equal(t, "/uploads/"+id, store.URL(id))

	rc, err := store.Open(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}
