package runner

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfail-dev/xfail/types"
)

func TestNewExecutorValidation(t *testing.T) {
	_, err := NewExecutor("", "go", log.New())
	require.Error(t, err)

	e, err := NewExecutor(t.TempDir(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGoBinary, e.goBinary)
}

func TestExecuteValidation(t *testing.T) {
	e, err := NewExecutor(t.TempDir(), "go", log.New())
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), types.TestEntry{}, nil)
	require.Error(t, err)
}

func TestBuildTestArgs(t *testing.T) {
	e := &Executor{goBinary: "go"}

	tests := []struct {
		name      string
		entry     types.TestEntry
		skipNames []string
		want      []string
	}{
		{
			name:  "whole package",
			entry: types.TestEntry{Package: "./pkg"},
			want:  []string{"test", "-json", "-count=1", "./pkg"},
		},
		{
			name:  "named test with timeout",
			entry: types.TestEntry{Package: "./pkg", Name: "TestOne", Timeout: 5 * time.Minute},
			want:  []string{"test", "-json", "-count=1", "-timeout", "5m0s", "-run", "^TestOne$", "./pkg"},
		},
		{
			name:      "skip names become an anchored alternation",
			entry:     types.TestEntry{Package: "./pkg"},
			skipNames: []string{"TestA", "TestB"},
			want:      []string{"test", "-json", "-count=1", "-skip", "^(TestA|TestB)$", "./pkg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.buildTestArgs(tt.entry, tt.skipNames))
		})
	}
}
