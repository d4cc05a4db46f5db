package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRemoveArtifact(t *testing.T) {
	a := NewAgent(zerolog.Nop(), t.TempDir(), t.TempDir())

	path := filepath.Join(t.TempDir(), "backup.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o600))

	require.NoError(t, a.RemoveArtifact(context.Background(), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// A second removal of the same path is not an error.
	assert.NoError(t, a.RemoveArtifact(context.Background(), path))
}
