package xfail

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xfail-dev/xfail/runner"
	"github.com/xfail-dev/xfail/types"
)

// printResultsTable renders one row per top-level test, with failing
// subtests indented beneath their parent.
func (s *Session) printResultsTable(result *runner.RunnerResult) {
	s.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Test", "Duration", "Status", "Expected", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, id := range result.SortedIDs() {
		test := result.Tests[id]
		t.AppendRow(table.Row{
			id,
			formatDuration(test.Duration),
			getResultString(test.Status),
			boolToMark(test.Expected),
			errorMessage(test),
		})

		subIDs := sortedSubTestNames(test)
		for i, name := range subIDs {
			prefix := "├─"
			if i == len(subIDs)-1 {
				prefix = "└─"
			}
			subTest := test.SubTests[name]
			t.AppendRow(table.Row{
				fmt.Sprintf("%s %s", prefix, name),
				formatDuration(subTest.Duration),
				getResultString(subTest.Status),
				boolToMark(subTest.Expected),
				errorMessage(subTest),
			})
		}
	}

	switch result.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("TOTAL: %d (%d xfail, %d xpass)",
			result.Stats.Total, result.Stats.XFailed, result.Stats.XPassed),
		formatDuration(result.Duration),
		getResultString(result.Status),
		"",
		"",
	})

	t.Render()
}

// renderSummary builds the plain-text run summary written alongside the
// per-test log files.
func renderSummary(result *runner.RunnerResult) string {
	return result.String()
}

func sortedResultIDs(result *runner.RunnerResult) []string {
	return result.SortedIDs()
}

func sortedSubTestNames(test *types.TestResult) []string {
	names := make([]string, 0, len(test.SubTests))
	for name := range test.SubTests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func errorMessage(test *types.TestResult) string {
	if test.Error == nil {
		return ""
	}
	return test.Error.Error()
}

func boolToMark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// getResultString returns a symbol-prefixed string for the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusXFail:
		return "~ xfail"
	case types.TestStatusXPass:
		return "! xpass"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
