package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/maxim/internal/codegen"
)

// DefaultBuildID is the build id used when a scenario does not set one.
const DefaultBuildID = "harness-build"

// Scenario defines one simulation run and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graph is the path of the CUE graph file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Graph string `yaml:"graph"`

	// Root names the surface whose lifecycle procedure is executed.
	Root string `yaml:"root"`

	// Lifecycle is construct, update or destruct.
	Lifecycle string `yaml:"lifecycle"`

	// Target overrides the default code generation target.
	Target *codegen.TargetProperties `yaml:"target,omitempty"`

	// Bindings store a pointer to a named array root at an address.
	Bindings map[string]string `yaml:"bindings,omitempty"`

	// Values store integers at addresses, typically array bitmaps.
	Values map[string]uint64 `yaml:"values,omitempty"`

	// Assertions validate the final trace and memory.
	Assertions []Assertion `yaml:"assertions"`

	// BuildID fixes the build id. Defaults to DefaultBuildID.
	BuildID string `yaml:"build_id,omitempty"`
}

// CallRef names a surface or block procedure. Exactly one field is set.
type CallRef struct {
	Surface string `yaml:"surface,omitempty"`
	Block   string `yaml:"block,omitempty"`
}

func (r CallRef) String() string {
	if r.Surface != "" {
		return "surface " + r.Surface
	}
	return "block " + r.Block
}

// Assertion validates the trace or final memory.
type Assertion struct {
	// Type is one of call_count, call_slots, call_order, bitmap.
	Type string `yaml:"type"`

	// CallRef names the procedure (call_count, call_slots).
	CallRef `yaml:",inline"`

	// Lifecycle selects the procedure's lifecycle. Defaults to the scenario's.
	Lifecycle string `yaml:"lifecycle,omitempty"`

	// Count is the expected number of calls (call_count).
	Count int `yaml:"count,omitempty"`

	// Slots are the expected slots in call order (call_slots).
	Slots []uint64 `yaml:"slots,omitempty"`

	// Calls are the procedures in expected order (call_order).
	Calls []CallRef `yaml:"calls,omitempty"`

	// Path is the address to read (bitmap).
	Path string `yaml:"path,omitempty"`

	// Value is the expected integer at Path (bitmap).
	Value *uint64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertCallCount = "call_count"
	AssertCallSlots = "call_slots"
	AssertCallOrder = "call_order"
	AssertBitmap    = "bitmap"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the graph path relative to the scenario BEFORE validation.
	if scenario.Graph != "" && !filepath.IsAbs(scenario.Graph) {
		scenario.Graph = filepath.Join(filepath.Dir(path), scenario.Graph)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Graph); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: graph file not found: %s", scenario.Graph)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Graph == "" {
		return fmt.Errorf("graph is required")
	}
	if s.Root == "" {
		return fmt.Errorf("root is required")
	}
	if _, ok := codegen.ParseLifecycle(s.Lifecycle); !ok {
		return fmt.Errorf("lifecycle %q must be one of construct, update, destruct", s.Lifecycle)
	}
	if s.Target != nil {
		if err := s.Target.Validate(); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCallRef(index int, kind string, r CallRef) error {
	if (r.Surface == "") == (r.Block == "") {
		return fmt.Errorf("assertions[%d]: exactly one of surface or block is required for %s", index, kind)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Lifecycle != "" {
		if _, ok := codegen.ParseLifecycle(a.Lifecycle); !ok {
			return fmt.Errorf("assertions[%d]: unknown lifecycle %q", index, a.Lifecycle)
		}
	}

	switch a.Type {
	case AssertCallCount:
		if err := validateCallRef(index, a.Type, a.CallRef); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertCallSlots:
		if a.Surface == "" || a.Block != "" {
			return fmt.Errorf("assertions[%d]: surface is required for call_slots", index)
		}
		if a.Slots == nil {
			return fmt.Errorf("assertions[%d]: slots list is required for call_slots", index)
		}
	case AssertCallOrder:
		if len(a.Calls) < 2 {
			return fmt.Errorf("assertions[%d]: at least two calls are required for call_order", index)
		}
		for _, c := range a.Calls {
			if err := validateCallRef(index, a.Type, c); err != nil {
				return err
			}
		}
	case AssertBitmap:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for bitmap", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for bitmap", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
