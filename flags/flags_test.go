package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
		})
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			envName := envFlags[0]
			require.True(t, strings.HasPrefix(envName, EnvVarPrefix+"_"),
				"%q flag env var %q must start with %s_", flagName, envName, EnvVarPrefix)
			require.False(t, strings.Contains(envName, "-"),
				"%q flag env var %q must not contain hyphens", flagName, envName)
		})
	}
}

func TestCheckRequired(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "no flags", args: nil, wantErr: false},
		{name: "update only", args: []string{"--update"}, wantErr: false},
		{name: "skip-expected only", args: []string{"--skip-expected"}, wantErr: false},
		{name: "update with skip-expected", args: []string{"--update", "--skip-expected"}, wantErr: true},
		{name: "update with list", args: []string{"--update", "--list"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Flags: Flags,
				Action: func(ctx *cli.Context) error {
					return CheckRequired(ctx)
				},
			}
			err := app.Run(append([]string{"xfail"}, tt.args...))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
