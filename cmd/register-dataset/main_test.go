package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realiad/iad-layout/internal/codegen"
	"github.com/realiad/iad-layout/internal/errors"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func baseArgs(dataRoot, outDir string, extra ...string) []string {
	return append([]string{
		"--env", "production",
		"--log-level", "error",
		"--env-file", filepath.Join(outDir, "missing.env"),
		"--data_root", dataRoot,
		"--dataset_name", "Widgets",
		"--output_dir", outDir,
	}, extra...)
}

func TestRun_GeneratesConfig(t *testing.T) {
	dataRoot := t.TempDir()
	outDir := t.TempDir()
	touch(t, dataRoot, "bottle/train/good/1.png", "bottle/test/broken/1.png")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), baseArgs(dataRoot, outDir), &stdout, &stderr)
	require.Equal(t, errors.ExitOK, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "  - bottle: 1 train, 1 test samples, 1 anomaly types\n")
	assert.Contains(t, out, "Found 1 object categories")
	assert.Contains(t, out, `elif dataset == "Widgets":`)
	assert.Contains(t, out, "--dataset Widgets --data_root "+dataRoot)

	path := filepath.Join(outDir, "dataset_config_Widgets.txt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(codegen.Header)))
	assert.Contains(t, string(data), `"bottle": ["broken"]`)
	assert.Contains(t, out, "Configuration also saved to: "+path)

	stdout.Reset()
	require.Equal(t, errors.ExitOK, run(context.Background(), baseArgs(dataRoot, outDir), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Configuration unchanged: "+path)

	touch(t, dataRoot, "bottle/test/scratch/2.png")
	stdout.Reset()
	require.Equal(t, errors.ExitOK, run(context.Background(), baseArgs(dataRoot, outDir), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Configuration updated: "+path)
	assert.Contains(t, stdout.String(), `+            "bottle": ["broken", "scratch"]`)
}

func TestRun_CustomNormalClass(t *testing.T) {
	dataRoot := t.TempDir()
	outDir := t.TempDir()
	touch(t, dataRoot, "pcb/train/OK/1.png", "pcb/test/OK/2.png", "pcb/test/NG/3.png")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), baseArgs(dataRoot, outDir, "--normal_class", "OK"), &stdout, &stderr)
	require.Equal(t, errors.ExitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), `"pcb": ["NG"]`)
}

func TestRun_MalformedCategoryStillWritesConfig(t *testing.T) {
	dataRoot := t.TempDir()
	outDir := t.TempDir()
	touch(t, dataRoot, "bottle/train/good/1.png", "bottle/test/good/2.png", "cable/train/good/1.png")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), baseArgs(dataRoot, outDir), &stdout, &stderr)
	assert.Equal(t, errors.ExitPartial, code)
	assert.Contains(t, stdout.String(), "  - cable: skipped (missing test/)")
	assert.Contains(t, stderr.String(), "cable")

	data, err := os.ReadFile(filepath.Join(outDir, "dataset_config_Widgets.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `objects = ["bottle"]`)
}

func TestRun_UsageErrors(t *testing.T) {
	outDir := t.TempDir()
	var stdout, stderr bytes.Buffer

	assert.Equal(t, errors.ExitOK, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-data_root")

	tests := []struct {
		name string
		args []string
	}{
		{"missing data root", baseArgs(filepath.Join(outDir, "nope"), outDir)},
		{"unsafe dataset name", append(baseArgs(t.TempDir(), outDir), "--dataset_name", "../x")},
		{"bad debounce", baseArgs(t.TempDir(), outDir, "--debounce", "soon")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, errors.ExitUsage, run(context.Background(), tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRun_WatchRegenerates(t *testing.T) {
	dataRoot := t.TempDir()
	outDir := t.TempDir()
	touch(t, dataRoot, "bottle/train/good/1.png", "bottle/test/broken/1.png")
	path := filepath.Join(outDir, "dataset_config_Widgets.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, baseArgs(dataRoot, outDir, "--watch", "--debounce", "50ms"), &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	touch(t, dataRoot, "cable/train/good/1.png", "cable/test/cut/1.png")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && bytes.Contains(data, []byte(`"cable": ["cut"]`))
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, errors.ExitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch mode did not stop after cancel")
	}
}
