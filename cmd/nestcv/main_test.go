package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"task failures", &TaskFailureError{Failed: 2}, ExitTasksFailed},
		{"wrapped task failures", errors.Wrap(&TaskFailureError{Failed: 1}, "iteration 1"), ExitTasksFailed},
		{"configuration error", errors.NewConfigurationError("processors", "missing"), ExitError},
		{"other error", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitRunAndFolds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ConfigFileName)

	out, err := runCLI(t, "init", dir, "--instances", "12", "--features", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+cfgPath)
	for _, name := range []string{ConfigFileName, "Class.txt", "synthetic.txt"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	_, err = runCLI(t, "init", dir)
	assert.Error(t, err, "init does not overwrite without --force")

	out, err = runCLI(t, "run", "-c", cfgPath, "--workers", "2", "--log-file", filepath.Join(dir, "nestcv.log"))
	require.NoError(t, err)
	assert.Contains(t, out, "# Iteration 1, random seed 1")
	assert.Contains(t, out, "synthetic_fisher_centroid\t")
	assert.Contains(t, out, "Ensemble_MajorityVote\t")

	logged, err := os.ReadFile(filepath.Join(dir, "nestcv.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "Iteration finished")

	out, err = runCLI(t, "folds", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "# Iteration 1, random seed 1")
	assert.Contains(t, out, "# Inner folds of outer fold 5")
}

func TestRunMissingConfig(t *testing.T) {
	_, err := runCLI(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitError, exitCode(err))
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "nestcv dev\n", out)
}
