package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortedIDs returns the identifiers of all recorded tests in lexical order.
func (r *RunnerResult) SortedIDs() []string {
	ids := make([]string, 0, len(r.Tests))
	for id := range r.Tests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// String returns a plain-text summary of the run suitable for logs and
// failure messages.
func (r *RunnerResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d, Expected failures: %d, Unexpected passes: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped, r.Stats.XFailed, r.Stats.XPassed))

	for _, id := range r.SortedIDs() {
		test := r.Tests[id]
		b.WriteString(fmt.Sprintf("├── %s (%s) [status=%s]\n", id, formatDuration(test.Duration), test.Status))
		if test.Error != nil {
			b.WriteString(fmt.Sprintf("│   └── Error: %s\n", test.Error.Error()))
		}

		subNames := make([]string, 0, len(test.SubTests))
		for name := range test.SubTests {
			subNames = append(subNames, name)
		}
		sort.Strings(subNames)
		for _, name := range subNames {
			subTest := test.SubTests[name]
			b.WriteString(fmt.Sprintf("│   ├── %s (%s) [status=%s]\n",
				name, formatDuration(subTest.Duration), subTest.Status))
			if subTest.Error != nil {
				b.WriteString(fmt.Sprintf("│   │   └── Error: %s\n", subTest.Error.Error()))
			}
		}
	}
	return b.String()
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
