package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestKey(t *testing.T) {
	tests := []struct {
		name     string
		pkg      string
		funcName string
		want     string
	}{
		{
			name:     "named test",
			pkg:      "github.com/example/pkg",
			funcName: "TestOne",
			want:     "github.com/example/pkg::TestOne",
		},
		{
			name:     "package entry",
			pkg:      "github.com/example/pkg",
			funcName: "",
			want:     "github.com/example/pkg",
		},
		{
			name:     "subtest path",
			pkg:      "./internal/thing",
			funcName: "TestParent/sub_case",
			want:     "./internal/thing::TestParent/sub_case",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TestKey(tt.pkg, tt.funcName))
		})
	}
}

func TestSplitTestName(t *testing.T) {
	funcName, subPath := SplitTestName("TestParent/sub/case")
	assert.Equal(t, "TestParent", funcName)
	assert.Equal(t, "sub/case", subPath)

	funcName, subPath = SplitTestName("TestFlat")
	assert.Equal(t, "TestFlat", funcName)
	assert.Equal(t, "", subPath)
}

func TestStatusIsFailure(t *testing.T) {
	assert.True(t, TestStatusFail.IsFailure())
	assert.True(t, TestStatusError.IsFailure())
	assert.False(t, TestStatusPass.IsFailure())
	assert.False(t, TestStatusSkip.IsFailure())
	assert.False(t, TestStatusXFail.IsFailure())
	assert.False(t, TestStatusXPass.IsFailure())
}

func TestGetTestDisplayName(t *testing.T) {
	named := &TestResult{Package: "github.com/example/pkg", FuncName: "TestOne"}
	assert.Equal(t, "TestOne", GetTestDisplayName(named))

	pkg := &TestResult{Package: "github.com/example/pkg"}
	assert.Equal(t, "pkg (package)", GetTestDisplayName(pkg))
}
