package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/maxim/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    engine.Trace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event)
		}
	}

	return buf.String()
}

// evaluateAssertions checks every assertion and returns the failure messages.
// An unresolvable name fails its assertion rather than the run.
func evaluateAssertions(result *Result, assertions []Assertion, res *resolver) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, res); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, res *resolver) error {
	switch a.Type {
	case AssertCallCount:
		fn, err := res.callFunc(a.CallRef, a.Lifecycle)
		if err != nil {
			return err
		}
		return assertCallCount(result.Trace, fn, a.Count)
	case AssertCallSlots:
		fn, err := res.surfaceFunc(a.Surface, a.Lifecycle)
		if err != nil {
			return err
		}
		return assertCallSlots(result.Trace, fn, a.Slots)
	case AssertCallOrder:
		fns := make([]string, len(a.Calls))
		for i, c := range a.Calls {
			fn, err := res.callFunc(c, a.Lifecycle)
			if err != nil {
				return err
			}
			fns[i] = fn
		}
		return assertCallOrder(result.Trace, fns)
	case AssertBitmap:
		return assertBitmap(result.Memory, a.Path, *a.Value)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCallCount checks that function is called exactly count times.
func assertCallCount(trace engine.Trace, function string, count int) error {
	got := len(trace.Calls(function))
	if got != count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls of %s", count, function),
			Actual:   fmt.Sprintf("%d calls", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallSlots checks the slots function was called for, in order.
func assertCallSlots(trace engine.Trace, function string, slots []uint64) error {
	got := trace.Slots(function)
	if !slices.Equal(got, slots) {
		return &AssertionError{
			Type:     AssertCallSlots,
			Expected: fmt.Sprintf("%s called for slots %v", function, slots),
			Actual:   fmt.Sprintf("slots %v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallOrder checks that the first call of each function occurs in the
// given order. Calls don't need to be consecutive.
func assertCallOrder(trace engine.Trace, functions []string) error {
	positions := make(map[string]int64)
	for _, event := range trace {
		if _, seen := positions[event.Function]; !seen {
			positions[event.Function] = event.Seq
		}
	}

	for _, fn := range functions {
		if _, ok := positions[fn]; !ok {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all calls present: %v", functions),
				Actual:   fmt.Sprintf("missing call: %s", fn),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(functions); i++ {
		prev, curr := functions[i-1], functions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", functions),
				Actual: fmt.Sprintf("%s (seq %d) should be before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertBitmap checks the integer stored at path.
func assertBitmap(mem *engine.Memory, path string, want uint64) error {
	v, ok, err := mem.Get(path)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertBitmap,
			Expected: fmt.Sprintf("%s = %#b", path, want),
			Actual:   "nothing stored",
		}
	}
	if v.IsPtr() || v.Int != want {
		return &AssertionError{
			Type:     AssertBitmap,
			Expected: fmt.Sprintf("%s = %#b", path, want),
			Actual:   fmt.Sprintf("%s = %s", path, formatValue(v)),
		}
	}
	return nil
}

func formatValue(v engine.Value) string {
	if v.IsPtr() {
		return "pointer " + v.String()
	}
	return fmt.Sprintf("%#b", v.Int)
}
