package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/structlayout/internal/config"
)

// Scenario defines one extraction scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graph is the path of a .cue type graph document, relative to the
	// scenario file.
	Graph string `yaml:"graph,omitempty"`

	// Source is an inline type graph document. Exactly one of Graph and
	// Source is set.
	Source string `yaml:"source,omitempty"`

	// Target restricts top-level emission to one struct name.
	Target string `yaml:"target,omitempty"`

	// Format is python (default) or json.
	Format string `yaml:"format,omitempty"`

	// Trailer toggles the "# dumped structs:" trailer. Defaults to true.
	Trailer *bool `yaml:"trailer,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type is one of emitted, layout, field, error.
	Type string `yaml:"type"`

	// Names is the expected emission order (emitted).
	Names []string `yaml:"names,omitempty"`

	// Struct names the layout (layout, field).
	Struct string `yaml:"struct,omitempty"`

	// TotalBits is the expected layout size (layout). Zero skips the check.
	TotalBits uint64 `yaml:"total_bits,omitempty"`

	// Field names the field (field).
	Field string `yaml:"field,omitempty"`

	// BitOffset is the expected field position (field).
	BitOffset *uint64 `yaml:"bit_offset,omitempty"`

	// Kind is the expected descriptor kind, e.g. pointer or bitfield (field).
	Kind string `yaml:"kind,omitempty"`

	// Code is the expected invariant error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertEmitted = "emitted"
	AssertLayout  = "layout"
	AssertField   = "field"
	AssertError   = "error"
)

// LoadScenario reads and parses a scenario YAML file. A relative graph
// path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Graph != "" && !filepath.IsAbs(scenario.Graph) {
		scenario.Graph = filepath.Join(filepath.Dir(path), scenario.Graph)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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

	switch {
	case s.Graph == "" && s.Source == "":
		return fmt.Errorf("one of graph or source is required")
	case s.Graph != "" && s.Source != "":
		return fmt.Errorf("graph and source are mutually exclusive")
	case s.Graph != "":
		if _, err := os.Stat(s.Graph); os.IsNotExist(err) {
			return fmt.Errorf("graph file not found: %s", s.Graph)
		}
	}

	switch s.Format {
	case "", config.FormatPython, config.FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", s.Format)
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

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEmitted:
		if a.Names == nil {
			return fmt.Errorf("assertions[%d]: names is required for emitted", index)
		}
	case AssertLayout:
		if a.Struct == "" {
			return fmt.Errorf("assertions[%d]: struct is required for layout", index)
		}
	case AssertField:
		if a.Struct == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: struct and field are required for field", index)
		}
		if a.BitOffset == nil && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: field needs bit_offset or kind", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
