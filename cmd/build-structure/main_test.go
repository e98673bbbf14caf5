package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realiad/iad-layout/internal/errors"
)

const bottleJSON = `{
	"meta": {"normal_class": "good", "prefix": "bottle"},
	"train": [{"image_path": "train/good/1.png", "anomaly_class": "good"}],
	"test": [{"image_path": "test/broken/1.png", "anomaly_class": "broken"}]
}`

type dirs struct {
	json, images, output string
}

func setup(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	d := dirs{
		json:   filepath.Join(root, "json"),
		images: filepath.Join(root, "images"),
		output: filepath.Join(root, "output"),
	}
	for _, rel := range []string{"bottle/train/good/1.png", "bottle/test/broken/1.png"} {
		p := filepath.Join(d.images, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
	require.NoError(t, os.MkdirAll(d.json, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.json, "bottle.json"), []byte(bottleJSON), 0o644))
	return d
}

func (d dirs) args(extra ...string) []string {
	return append([]string{
		"--env", "production",
		"--log-level", "error",
		"--env-file", filepath.Join(d.output+"-missing", ".env"),
		"--json_dir", d.json,
		"--image_dir", d.images,
		"--output_dir", d.output,
	}, extra...)
}

func TestRun_BuildsTree(t *testing.T) {
	d := setup(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), d.args(), &stdout, &stderr)
	require.Equal(t, errors.ExitOK, code, stderr.String())

	for _, rel := range []string{"bottle/train/good/1.png", "bottle/test/broken/1.png"} {
		info, err := os.Lstat(filepath.Join(d.output, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.True(t, info.Mode()&os.ModeSymlink != 0)
	}
	assert.Contains(t, stdout.String(), "Processing bottle... 2 links")
	assert.Contains(t, stdout.String(), "Total symlinks created: 2")
	assert.Contains(t, stdout.String(), "register-dataset --data_root "+d.output)
}

func TestRun_RerunWithoutOverwriteConflicts(t *testing.T) {
	d := setup(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, errors.ExitOK, run(context.Background(), d.args(), &stdout, &stderr))

	stderr.Reset()
	code := run(context.Background(), d.args(), &stdout, &stderr)
	assert.Equal(t, errors.ExitOutputConflict, code)
	assert.Contains(t, stderr.String(), d.output)

	stderr.Reset()
	code = run(context.Background(), d.args("--overwrite"), &stdout, &stderr)
	assert.Equal(t, errors.ExitOK, code, stderr.String())
}

func TestRun_WritesReport(t *testing.T) {
	d := setup(t)
	reportPath := filepath.Join(t.TempDir(), "reports", "run.yaml")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), d.args("--report", reportPath), &stdout, &stderr)
	require.Equal(t, errors.ExitOK, code, stderr.String())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bottle")
	assert.Contains(t, stdout.String(), "Report written to: "+reportPath)
}

func TestRun_MalformedCategoryIsPartial(t *testing.T) {
	d := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(d.json, "cable.json"), []byte(`{"meta": {}}`), 0o644))
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), d.args(), &stdout, &stderr)
	assert.Equal(t, errors.ExitPartial, code)
	assert.Contains(t, stdout.String(), "Processing cable... failed")
	assert.Contains(t, stdout.String(), "Processing bottle... 2 links")
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, errors.ExitOK, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-json_dir")

	stderr.Reset()
	assert.Equal(t, errors.ExitUsage, run(context.Background(), []string{"--no-such-flag"}, &stdout, &stderr))

	stderr.Reset()
	assert.Equal(t, errors.ExitUsage, run(context.Background(), []string{"--env", "staging"}, &stdout, &stderr))

	stderr.Reset()
	code := run(context.Background(), []string{"--env", "production", "--log-level", "error", "--json_dir", t.TempDir()}, &stdout, &stderr)
	assert.Equal(t, errors.ExitUsage, code)
	assert.Contains(t, stderr.String(), "validation failed")
}
