package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfail-dev/xfail/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xfail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryDefaultsToWholeTree(t *testing.T) {
	r, err := NewRegistry(Config{DefaultTimeout: time.Minute})
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "./...", entries[0].Package)
	assert.Equal(t, "", entries[0].Name)
	assert.Equal(t, time.Minute, entries[0].Timeout)
	assert.Equal(t, "go", r.GoBinary())
}

func TestRegistryLoadsRunConfig(t *testing.T) {
	configPath := writeConfig(t, `
go_binary: go1.23
default_timeout: 2m
tests:
  - name: TestOne
    package: "./pkg/a"
  - package: "./pkg/b"
    run_all: true
    timeout: 30s
  - package: "./pkg/c"
`)

	r, err := NewRegistry(Config{ConfigFile: configPath, DefaultTimeout: time.Minute})
	require.NoError(t, err)

	assert.Equal(t, "go1.23", r.GoBinary())
	assert.Equal(t, 2*time.Minute, r.DefaultTimeout())

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, types.TestEntry{Name: "TestOne", Package: "./pkg/a", Timeout: 2 * time.Minute}, entries[0])
	assert.Equal(t, types.TestEntry{Package: "./pkg/b", Timeout: 30 * time.Second}, entries[1])
	assert.Equal(t, types.TestEntry{Package: "./pkg/c", Timeout: 2 * time.Minute}, entries[2])
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing file entirely", content: ""},
		{name: "no tests", content: "tests: []\n"},
		{name: "missing package", content: "tests:\n  - name: TestOne\n"},
		{name: "name and run_all", content: "tests:\n  - name: TestOne\n    package: ./a\n    run_all: true\n"},
		{name: "not yaml", content: "{{{\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			if tt.name == "missing file entirely" {
				path = filepath.Join(t.TempDir(), "nonexistent.yaml")
			} else {
				path = writeConfig(t, tt.content)
			}

			_, err := NewRegistry(Config{ConfigFile: path})
			require.Error(t, err)
		})
	}
}
