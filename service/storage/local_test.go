package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-segmenter/service/config"
)

func TestStoreFileMovesIntoRecordings(t *testing.T) {
	recordings := filepath.Join(t.TempDir(), "recordings")
	cfgSvc := config.NewEnvWithLookup(func(key string) (string, bool) {
		if key == "RECORDINGS_FOLDER" {
			return recordings, true
		}
		return "", false
	})
	svc := NewLocal(cfgSvc)

	src := filepath.Join(t.TempDir(), "mask.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))

	stored, err := svc.StoreFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(recordings, "mask.png"), stored)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	again, err := svc.StoreFile(stored)
	require.NoError(t, err)
	assert.Equal(t, stored, again)

	_, err = svc.StoreFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
