package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fantasyrally/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentService(t *testing.T) (*ContentService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewContentService(newTestDB(t), &config.ContentConfig{Dir: dir}), dir
}

func TestUploadSameOriginalNameNoCollision(t *testing.T) {
	s, dir := newContentService(t)
	ctx := context.Background()

	a, err := s.Upload(ctx, strings.NewReader("first"), "car.glb", "model/gltf-binary", "Car A")
	require.NoError(t, err)
	b, err := s.Upload(ctx, strings.NewReader("second"), "car.glb", "model/gltf-binary", "Car B")
	require.NoError(t, err)

	assert.NotEqual(t, a.StoredName, b.StoredName)
	assert.True(t, strings.HasSuffix(a.StoredName, ".glb"))
	assert.True(t, strings.HasSuffix(b.StoredName, ".glb"))

	dataA, err := os.ReadFile(filepath.Join(dir, a.StoredName))
	require.NoError(t, err)
	dataB, err := os.ReadFile(filepath.Join(dir, b.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "first", string(dataA))
	assert.Equal(t, "second", string(dataB))
}

func TestListContentMostRecentFirst(t *testing.T) {
	s, _ := newContentService(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, strings.NewReader("a"), "a.png", "image/png", "oldest")
	require.NoError(t, err)
	_, err = s.Upload(ctx, strings.NewReader("b"), "b.png", "image/png", "middle")
	require.NoError(t, err)
	_, err = s.Upload(ctx, strings.NewReader("c"), "c.png", "image/png", "newest")
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "oldest", items[2].Title)
}
