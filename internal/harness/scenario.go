package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fdn/internal/rules"
)

// Scenario defines an end-to-end rename scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules replaces the seeded rule set when present.
	Rules *rules.Rules `yaml:"rules,omitempty"`

	// Tree lists the entries created before the first step, relative to
	// the scenario root. An entry ending in "/" is a directory; any other
	// entry is a file whose content is its own path.
	Tree []string `yaml:"tree"`

	// Steps run in order, each as a separate run.
	Steps []Step `yaml:"steps"`

	// Assertions validate the tree and store after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// RunID prefixes the run id of each step. Defaults to "run".
	RunID string `yaml:"run_id,omitempty"`
}

// Step is one invocation of the orchestrator.
type Step struct {
	// Op is rename, reverse or mv.
	Op string `yaml:"op"`

	// Paths are relative to the scenario root; "." is the root itself.
	Paths []string `yaml:"paths"`

	// Targets are the new base names for mv, one per path.
	Targets []string `yaml:"targets,omitempty"`

	// Walk collects entries below Paths instead of using them directly.
	Walk bool `yaml:"walk,omitempty"`

	// Kind selects files or directories when walking. Defaults to file.
	Kind string `yaml:"kind,omitempty"`

	// MaxDepth limits walking; zero is unlimited.
	MaxDepth int `yaml:"max_depth,omitempty"`

	DryRun        bool `yaml:"dry_run,omitempty"`
	Chain         bool `yaml:"chain,omitempty"`
	IncludeHidden bool `yaml:"include_hidden,omitempty"`

	// Expect requires the step to fail with a given code. Without it any
	// error fails the scenario.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the required failure of a step.
type Expect struct {
	Error string `yaml:"error"`
}

// Assertion validates final tree or store state.
type Assertion struct {
	// Type is one of tree, exists, missing, records, no_plaintext.
	Type string `yaml:"type"`

	// Entries is the full expected listing (used by tree).
	Entries []string `yaml:"entries,omitempty"`

	// Path is the entry checked by exists and missing.
	Path string `yaml:"path,omitempty"`

	// Count is the expected number of live records (used by records).
	Count int `yaml:"count,omitempty"`

	// Names must not appear in the provenance table (used by no_plaintext).
	Names []string `yaml:"names,omitempty"`
}

// Step operations.
const (
	OpRename  = "rename"
	OpReverse = "reverse"
	OpMove    = "mv"
)

// Assertion type constants.
const (
	AssertTree        = "tree"
	AssertExists      = "exists"
	AssertMissing     = "missing"
	AssertRecords     = "records"
	AssertNoPlaintext = "no_plaintext"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Rules != nil {
		if s.Rules.Separator == "" {
			s.Rules.Separator = rules.DefaultSeparator
		}
		if s.Rules.Terms == nil {
			s.Rules.Terms = map[string]string{}
		}
		if err := s.Rules.Validate(); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
	}

	for i, entry := range s.Tree {
		if err := validateRelPath(entry); err != nil {
			return fmt.Errorf("tree[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpRename, OpReverse:
		if len(step.Targets) != 0 {
			return fmt.Errorf("targets are only valid for %s", OpMove)
		}
	case OpMove:
		if len(step.Targets) != len(step.Paths) {
			return fmt.Errorf("mv needs one target per path: got %d targets for %d paths",
				len(step.Targets), len(step.Paths))
		}
		if step.Walk {
			return fmt.Errorf("mv cannot walk")
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if len(step.Paths) == 0 {
		return fmt.Errorf("paths list is required and must be non-empty")
	}
	for _, p := range step.Paths {
		if err := validateRelPath(p); err != nil {
			return err
		}
	}

	switch step.Kind {
	case "", "file", "directory":
	default:
		return fmt.Errorf("unknown kind %q", step.Kind)
	}
	if step.Expect != nil && step.Expect.Error == "" {
		return fmt.Errorf("expect: error is required")
	}
	return nil
}

// validateRelPath rejects paths that would escape the scenario root.
func validateRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}
	if path.IsAbs(p) {
		return fmt.Errorf("path %q must be relative", p)
	}
	clean := path.Clean(strings.TrimSuffix(p, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the scenario root", p)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTree:
		// An empty listing is a valid expectation.
	case AssertExists, AssertMissing:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertRecords:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for records", index)
		}
	case AssertNoPlaintext:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names is required for no_plaintext", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
