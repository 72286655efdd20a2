package runner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/xfail-dev/xfail/types"
)

// TestEvent represents a test event from go test -json output
type TestEvent struct {
	Time    time.Time
	Action  string
	Package string
	Test    string
	Elapsed float64
	Output  string
}

// Parser turns a go test -json event stream into structured results.
type Parser struct{}

// NewParser creates a new output parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse consumes the event stream of one work unit and returns the
// top-level test results, sorted by test name. Subtests are attached to
// their top-level function's result, keyed by the full slash-separated
// name. Events for packages other than the entry's own (dependency builds,
// "./..." neighbours) each yield results under their reported import path.
//
// When the stream contains no test events at all but a package-level fail
// event (a compile error, a TestMain crash), a single package-level result
// with status error is produced so the breakage is never silently dropped.
func (p *Parser) Parse(r io.Reader) []*types.TestResult {
	results := make(map[string]*types.TestResult) // by package::func
	pkgFailed := make(map[string]bool)
	pkgOutput := make(map[string]*strings.Builder)
	testOutput := make(map[string]*strings.Builder) // by package::full test name
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		event, err := parseTestEvent(line)
		if err != nil {
			// go test occasionally emits non-JSON lines (vet diagnostics,
			// toolchain notices); they carry no outcome information.
			continue
		}

		if event.Test == "" {
			processPackageEvent(event, pkgFailed, pkgOutput)
			continue
		}

		funcName, _ := types.SplitTestName(event.Test)
		key := event.Package + "::" + funcName
		result, ok := results[key]
		if !ok {
			result = &types.TestResult{
				ID:       types.TestKey(event.Package, funcName),
				Package:  event.Package,
				FuncName: funcName,
				Status:   types.TestStatusPass,
				SubTests: make(map[string]*types.TestResult),
			}
			results[key] = result
			order = append(order, key)
		}

		if event.Test == funcName {
			processTestEvent(event, result, testOutput)
		} else {
			processSubTestEvent(event, result, testOutput)
		}
	}

	out := make([]*types.TestResult, 0, len(order))
	for _, key := range order {
		result := results[key]
		attachFailureOutput(result, testOutput)
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	// Surface package-level breakage that produced no test events.
	for pkg, failed := range pkgFailed {
		if !failed || packageHasTests(out, pkg) {
			continue
		}
		errResult := &types.TestResult{
			ID:      pkg,
			Package: pkg,
			Status:  types.TestStatusError,
		}
		if sb := pkgOutput[pkg]; sb != nil && sb.Len() > 0 {
			errResult.Error = fmt.Errorf("%s", strings.TrimSpace(stripansi.Strip(sb.String())))
		} else {
			errResult.Error = fmt.Errorf("package %s failed without running any tests", pkg)
		}
		out = append(out, errResult)
	}

	return out
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return event, fmt.Errorf("not a JSON event")
	}
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, fmt.Errorf("missing action")
	}
	return event, nil
}

func processPackageEvent(event TestEvent, pkgFailed map[string]bool, pkgOutput map[string]*strings.Builder) {
	switch event.Action {
	case ActionFail:
		pkgFailed[event.Package] = true
	case ActionOutput:
		sb, ok := pkgOutput[event.Package]
		if !ok {
			sb = &strings.Builder{}
			pkgOutput[event.Package] = sb
		}
		sb.WriteString(event.Output)
	}
}

func processTestEvent(event TestEvent, result *types.TestResult, testOutput map[string]*strings.Builder) {
	switch event.Action {
	case ActionPass:
		result.Status = types.TestStatusPass
		result.Duration = elapsedDuration(event)
	case ActionFail:
		result.Status = types.TestStatusFail
		result.Duration = elapsedDuration(event)
	case ActionSkip:
		result.Status = types.TestStatusSkip
		result.Duration = elapsedDuration(event)
	case ActionOutput:
		appendOutput(testOutput, event)
	}
}

func processSubTestEvent(event TestEvent, result *types.TestResult, testOutput map[string]*strings.Builder) {
	subTest, ok := result.SubTests[event.Test]
	if !ok {
		subTest = &types.TestResult{
			ID:       types.TestKey(event.Package, event.Test),
			Package:  event.Package,
			FuncName: event.Test,
			Status:   types.TestStatusPass,
		}
		result.SubTests[event.Test] = subTest
	}

	switch event.Action {
	case ActionPass:
		subTest.Status = types.TestStatusPass
		subTest.Duration = elapsedDuration(event)
	case ActionFail:
		subTest.Status = types.TestStatusFail
		subTest.Duration = elapsedDuration(event)
	case ActionSkip:
		subTest.Status = types.TestStatusSkip
		subTest.Duration = elapsedDuration(event)
	case ActionOutput:
		appendOutput(testOutput, event)
	}
}

// attachFailureOutput stores the captured output on failing results and
// derives their error message. Passing tests drop their output.
func attachFailureOutput(result *types.TestResult, testOutput map[string]*strings.Builder) {
	key := result.Package + "::" + result.FuncName
	if result.Status == types.TestStatusFail {
		if sb, ok := testOutput[key]; ok {
			output := strings.TrimSpace(stripansi.Strip(sb.String()))
			result.Stdout = output
			result.Error = fmt.Errorf("%s", firstErrorLine(output))
		} else {
			result.Error = fmt.Errorf("test failed without output")
		}
	}

	for _, subTest := range result.SubTests {
		subKey := subTest.Package + "::" + subTest.FuncName
		if subTest.Status != types.TestStatusFail {
			continue
		}
		if sb, ok := testOutput[subKey]; ok {
			output := strings.TrimSpace(stripansi.Strip(sb.String()))
			subTest.Stdout = output
			subTest.Error = fmt.Errorf("%s", firstErrorLine(output))
		} else {
			subTest.Error = fmt.Errorf("subtest failed without output")
		}
	}
}

func appendOutput(testOutput map[string]*strings.Builder, event TestEvent) {
	key := event.Package + "::" + event.Test
	sb, ok := testOutput[key]
	if !ok {
		sb = &strings.Builder{}
		testOutput[key] = sb
	}
	sb.WriteString(event.Output)
}

// firstErrorLine extracts the most pertinent line for compact display:
// the first assertion/panic line when present, the first line otherwise.
func firstErrorLine(output string) string {
	lines := strings.Split(output, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "Error:") ||
			strings.Contains(trimmed, "panic:") ||
			strings.Contains(trimmed, "Fatal:") {
			return trimmed
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "=== ") && !strings.HasPrefix(trimmed, "--- ") {
			return trimmed
		}
	}
	return "test failed"
}

func elapsedDuration(event TestEvent) time.Duration {
	if event.Elapsed > 0 {
		return time.Duration(event.Elapsed * float64(time.Second))
	}
	return 0
}

func packageHasTests(results []*types.TestResult, pkg string) bool {
	for _, r := range results {
		if r.Package == pkg {
			return true
		}
	}
	return false
}
