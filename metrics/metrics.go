package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xfail-dev/xfail/types"
)

const (
	MetricsNamespace = "xfail"
)

var (
	Debug        bool = true
	validResults      = []types.TestStatus{
		types.TestStatusPass,
		types.TestStatusFail,
		types.TestStatusSkip,
		types.TestStatusXFail,
		types.TestStatusXPass,
		types.TestStatusError,
	}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of observed test outcomes",
	}, []string{
		"run_id",
		"result",
	})

	expectedFailTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "expected_fail_total",
		Help:      "Tests that failed and were already in the baseline",
	}, []string{
		"run_id",
	})

	unexpectedPassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "unexpected_pass_total",
		Help:      "Baseline tests that passed this run (candidates for removal)",
	}, []string{
		"run_id",
	})

	baselineSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "baseline_size",
		Help:      "Number of identifiers in the expectation baseline",
	}, []string{
		"path",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of the most recent run",
	}, []string{
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the most recent run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordOutcome counts one observed test outcome
func RecordOutcome(runID string, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordOutcome - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"run_id", runID,
			"result", result)
	}
	testsTotal.WithLabelValues(runID, string(result)).Inc()
	switch result {
	case types.TestStatusXFail:
		expectedFailTotal.WithLabelValues(runID).Inc()
	case types.TestStatusXPass:
		unexpectedPassTotal.WithLabelValues(runID).Inc()
	}
}

// RecordBaselineSize records the size of the loaded or saved baseline
func RecordBaselineSize(path string, size int) {
	baselineSize.WithLabelValues(path).Set(float64(size))
}

// RecordRun records the summary of a completed run
func RecordRun(runID string, result types.TestStatus, duration time.Duration) {
	runResults.WithLabelValues(runID, string(result)).Set(1)
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
