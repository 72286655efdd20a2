package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/xfail-dev/xfail/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errToLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordOutcome(t *testing.T) {
	RecordOutcome("run1", types.TestStatusPass)
	RecordOutcome("run1", types.TestStatusFail)
	RecordOutcome("run1", types.TestStatusXFail)
	RecordOutcome("run1", types.TestStatusXPass)
	// Invalid result is logged, not recorded
	RecordOutcome("run1", types.TestStatus("bogus"))
}

func TestRecordRun(t *testing.T) {
	RecordRun("run1", types.TestStatusPass, time.Second)
	RecordRun("run2", types.TestStatusFail, 500*time.Millisecond)
}

func TestRecordBaselineSize(t *testing.T) {
	RecordBaselineSize(".xfail", 0)
	RecordBaselineSize(".xfail", 12)
}
