package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfail-dev/xfail/types"
)

func parseLines(t *testing.T, lines ...string) []*types.TestResult {
	t.Helper()
	p := NewParser()
	return p.Parse(strings.NewReader(strings.Join(lines, "\n")))
}

func TestParsePassingAndFailingTests(t *testing.T) {
	results := parseLines(t,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestAlpha"}`,
		`{"Action":"pass","Package":"example.com/mod/pkg","Test":"TestAlpha","Elapsed":0.5}`,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestBeta"}`,
		`{"Action":"output","Package":"example.com/mod/pkg","Test":"TestBeta","Output":"    beta_test.go:12: Error: wanted 2, got 3\n"}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Test":"TestBeta","Elapsed":0.1}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Elapsed":0.7}`,
	)

	require.Len(t, results, 2)
	assert.Equal(t, "example.com/mod/pkg::TestAlpha", results[0].ID)
	assert.Equal(t, types.TestStatusPass, results[0].Status)
	assert.Empty(t, results[0].Stdout)

	assert.Equal(t, "example.com/mod/pkg::TestBeta", results[1].ID)
	assert.Equal(t, types.TestStatusFail, results[1].Status)
	require.Error(t, results[1].Error)
	assert.Contains(t, results[1].Error.Error(), "Error: wanted 2, got 3")
	assert.Contains(t, results[1].Stdout, "beta_test.go:12")
}

func TestParseSubtests(t *testing.T) {
	results := parseLines(t,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestTable"}`,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestTable/case_a"}`,
		`{"Action":"pass","Package":"example.com/mod/pkg","Test":"TestTable/case_a","Elapsed":0.01}`,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestTable/case_b"}`,
		`{"Action":"output","Package":"example.com/mod/pkg","Test":"TestTable/case_b","Output":"    table_test.go:30: Error: boom\n"}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Test":"TestTable/case_b","Elapsed":0.02}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Test":"TestTable","Elapsed":0.05}`,
	)

	require.Len(t, results, 1)
	parent := results[0]
	assert.Equal(t, types.TestStatusFail, parent.Status)
	require.Len(t, parent.SubTests, 2)

	caseA := parent.SubTests["TestTable/case_a"]
	require.NotNil(t, caseA)
	assert.Equal(t, types.TestStatusPass, caseA.Status)
	assert.Equal(t, "example.com/mod/pkg::TestTable/case_a", caseA.ID)

	caseB := parent.SubTests["TestTable/case_b"]
	require.NotNil(t, caseB)
	assert.Equal(t, types.TestStatusFail, caseB.Status)
	require.Error(t, caseB.Error)
	assert.Contains(t, caseB.Error.Error(), "boom")
}

func TestParseSkippedTest(t *testing.T) {
	results := parseLines(t,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestMaybe"}`,
		`{"Action":"skip","Package":"example.com/mod/pkg","Test":"TestMaybe","Elapsed":0}`,
	)

	require.Len(t, results, 1)
	assert.Equal(t, types.TestStatusSkip, results[0].Status)
}

func TestParsePackageFailureWithoutTests(t *testing.T) {
	results := parseLines(t,
		`{"Action":"output","Package":"example.com/mod/broken","Output":"# example.com/mod/broken [build failed]\n"}`,
		`{"Action":"output","Package":"example.com/mod/broken","Output":"./broken_test.go:9:2: undefined: frobnicate\n"}`,
		`{"Action":"fail","Package":"example.com/mod/broken","Elapsed":0}`,
	)

	require.Len(t, results, 1)
	assert.Equal(t, "example.com/mod/broken", results[0].ID)
	assert.Equal(t, types.TestStatusError, results[0].Status)
	require.Error(t, results[0].Error)
	assert.Contains(t, results[0].Error.Error(), "undefined: frobnicate")
}

func TestParsePackageFailureWithTestsIsNotDuplicated(t *testing.T) {
	results := parseLines(t,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestOnly"}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Test":"TestOnly","Elapsed":0.1}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Elapsed":0.1}`,
	)

	// The package fail event must not synthesize an extra result when the
	// failing test already carries the outcome.
	require.Len(t, results, 1)
	assert.Equal(t, "example.com/mod/pkg::TestOnly", results[0].ID)
}

func TestParseIgnoresNonJSONLines(t *testing.T) {
	results := parseLines(t,
		`go: downloading github.com/stretchr/testify v1.11.1`,
		``,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestOne"}`,
		`{"Action":"pass","Package":"example.com/mod/pkg","Test":"TestOne","Elapsed":0.2}`,
	)

	require.Len(t, results, 1)
	assert.Equal(t, types.TestStatusPass, results[0].Status)
}

func TestParseStripsANSISequencesFromFailureOutput(t *testing.T) {
	results := parseLines(t,
		`{"Action":"run","Package":"example.com/mod/pkg","Test":"TestColor"}`,
		`{"Action":"output","Package":"example.com/mod/pkg","Test":"TestColor","Output":"    color_test.go:5: Error: \u001b[31mred\u001b[0m\n"}`,
		`{"Action":"fail","Package":"example.com/mod/pkg","Test":"TestColor","Elapsed":0.1}`,
	)

	require.Len(t, results, 1)
	assert.NotContains(t, results[0].Stdout, "[31m")
	assert.Contains(t, results[0].Error.Error(), "red")
}

func TestFirstErrorLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "assertion line preferred",
			output: "=== RUN   TestX\n    x_test.go:10: Error: mismatch\n--- FAIL: TestX (0.00s)",
			want:   "x_test.go:10: Error: mismatch",
		},
		{
			name:   "panic line preferred",
			output: "=== RUN   TestX\npanic: runtime error: index out of range\n",
			want:   "panic: runtime error: index out of range",
		},
		{
			name:   "falls back to first content line",
			output: "=== RUN   TestX\n    x_test.go:10: plain log\n--- FAIL: TestX (0.00s)",
			want:   "x_test.go:10: plain log",
		},
		{
			name:   "empty output",
			output: "",
			want:   "test failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstErrorLine(tt.output))
		})
	}
}
