package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/disk-span/internal/application"
	"github.com/eugenenazirov/disk-span/internal/config"
	"github.com/eugenenazirov/disk-span/internal/plan"
)

// TestPlanScriptMovesFiles generates a plan for a real tree and runs the
// resulting script with bash.
func TestPlanScriptMovesFiles(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}

	src := t.TempDir()
	dest := t.TempDir()
	files := map[string]int{
		"a.bin":               700,
		"with space.bin":      500,
		"sub/quote\"d.bin":    300,
		"sub/dollar$HOME.bin": 300,
		"sub/deep/e.bin":      200,
	}
	for name, size := range files {
		path := filepath.Join(src, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}

	cfg := config.Config{
		Source:      src,
		Destination: dest,
		Capacity:    1000,
		Output:      filepath.Join(t.TempDir(), "move_files.sh"),
	}
	result, err := application.RunPlan(context.Background(), cfg, zaptest.NewLogger(t), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Stats.Bins)

	cmd := exec.Command(bash, cfg.Output)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	assert.FileExists(t, filepath.Join(dest, "disk000", "a.bin"))
	assert.FileExists(t, filepath.Join(dest, "disk000", "dollar$HOME.bin"))
	assert.FileExists(t, filepath.Join(dest, "disk001", "with space.bin"))
	assert.FileExists(t, filepath.Join(dest, "disk001", "quote\"d.bin"))
	assert.FileExists(t, filepath.Join(dest, "disk001", "e.bin"))
	assert.NoFileExists(t, filepath.Join(src, "a.bin"))

	var moved int64
	for i := 0; i < result.Stats.Bins; i++ {
		entries, err := os.ReadDir(plan.Directory(dest, i))
		require.NoError(t, err)
		var used int64
		for _, e := range entries {
			info, err := e.Info()
			require.NoError(t, err)
			used += info.Size()
		}
		assert.LessOrEqual(t, used, cfg.Capacity)
		moved += used
	}
	assert.Equal(t, int64(2000), moved)
}
