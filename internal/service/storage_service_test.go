package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cofq_backend/internal/config"
	"cofq_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"knowledge/ohms-law/a.md", "knowledge/ohms-law/a.md", false},
		{"/knowledge//a.md", "knowledge/a.md", false},
		{`knowledge\a.md`, "knowledge/a.md", false},
		{"../etc/passwd", "", true},
		{"knowledge/../../x", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.key)
		if tt.wantErr {
			assert.ErrorIs(t, err, errInvalidStorageKey, tt.key)
			continue
		}
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.want, got)
	}
}

func TestLocalStorageProvider(t *testing.T) {
	root := t.TempDir()
	p := &LocalStorageProvider{Root: root}
	ctx := context.Background()

	url, err := p.Upload(ctx, "knowledge/motors/a.txt", strings.NewReader("overload relay"), 14, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/knowledge/motors/a.txt", url)

	rc, err := p.Open(ctx, "knowledge/motors/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "overload relay", string(data))

	require.NoError(t, p.Delete(ctx, "knowledge/motors/a.txt"))
	require.NoError(t, p.Delete(ctx, "knowledge/motors/a.txt"))
	_, err = os.Stat(filepath.Join(root, "knowledge", "motors", "a.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = p.Upload(ctx, "../escape.txt", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, errInvalidStorageKey)
}

func TestNewStorageService_FallsBackToLocal(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:      util.StorageOSS,
		LocalPath: t.TempDir(),
	}}
	s := NewStorageService(context.Background(), cfg)
	assert.Equal(t, util.StorageLocal, s.Kind)
	assert.IsType(t, &LocalStorageProvider{}, s.Provider)
}
