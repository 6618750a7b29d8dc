package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Scenario is a declarative verification suite for one page: the captures
// that define observable state, and the ordered steps to perform against it.
type Scenario struct {
	Name        string    `toml:"name" validate:"required"`
	Description string    `toml:"description"`
	BaseURL     string    `toml:"base_url" validate:"required,url"`
	Captures    []Capture `toml:"captures" validate:"required,min=1,dive"`
	Steps       []Step    `toml:"steps" validate:"required,min=1,dive"`
}

// Capture declares one named observation recorded in every snapshot.
type Capture struct {
	Name     string `toml:"name" validate:"required"`
	Kind     string `toml:"kind" validate:"required,oneof=count region_text visible overlay"`
	Selector string `toml:"selector" validate:"required"`
}

// Step is one verified action: target, intent, settle condition and the
// expectations the step must satisfy. A step with no expectations is a setup
// step; it still settles before the next step starts.
type Step struct {
	Name   string   `toml:"name" validate:"required"`
	Target Target   `toml:"target" validate:"required"`
	Intent Intent   `toml:"intent" validate:"required"`
	Settle Settle   `toml:"settle"`
	Expect []Expect `toml:"expect" validate:"dive"`
}

// Target describes an element by semantic role and accessible name,
// optionally narrowed by an ancestor scope.
type Target struct {
	Role  string  `toml:"role" validate:"required"`
	Name  string  `toml:"name" validate:"required"`
	Scope *Target `toml:"scope"`
}

// Intent is the user action a step performs.
type Intent struct {
	Kind    string `toml:"kind" validate:"required,oneof=click fill select"`
	Payload string `toml:"payload"`
}

// Settle lists the selectors whose predicates must all hold before the step
// is considered quiet. Empty means the step settles immediately.
type Settle struct {
	OverlayAbsent []string `toml:"overlay_absent"`
	Hidden        []string `toml:"hidden"`
	Interactable  []string `toml:"interactable"`
}

// Expect is one declared state change, checked against the step's
// before/after snapshots.
type Expect struct {
	Kind      string `toml:"kind" validate:"required,oneof=count_delta text_contains text_absent visible hidden"`
	Target    string `toml:"target" validate:"required"`
	Delta     int    `toml:"delta"`
	Substring string `toml:"substring"`
}

var validate = validator.New()

// Load reads and validates a single scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}

	var s Scenario
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &s, nil
}

// LoadDir loads every *.toml scenario in a directory, sorted by filename so
// runs are deterministic.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}

	return scenarios, nil
}

// Validate checks struct tags plus the cross-references tags cannot express:
// every expectation target must name a declared capture of a compatible kind.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}

	captures := make(map[string]string, len(s.Captures))
	for _, c := range s.Captures {
		if _, ok := captures[c.Name]; ok {
			return fmt.Errorf("duplicate capture name %q", c.Name)
		}
		captures[c.Name] = c.Kind
	}

	for _, step := range s.Steps {
		for _, exp := range step.Expect {
			kind, ok := captures[exp.Target]
			if !ok {
				return fmt.Errorf("step %q: expectation targets undeclared capture %q", step.Name, exp.Target)
			}
			if err := checkExpectKind(exp, kind); err != nil {
				return fmt.Errorf("step %q: %w", step.Name, err)
			}
		}
		if step.Intent.Kind != "click" && step.Intent.Payload == "" {
			return fmt.Errorf("step %q: %s intent requires a payload", step.Name, step.Intent.Kind)
		}
	}

	return nil
}

func checkExpectKind(exp Expect, captureKind string) error {
	switch exp.Kind {
	case "count_delta":
		if captureKind != "count" {
			return fmt.Errorf("count_delta expectation %q requires a count capture, got %s", exp.Target, captureKind)
		}
	case "text_contains", "text_absent":
		if captureKind != "region_text" {
			return fmt.Errorf("%s expectation %q requires a region_text capture, got %s", exp.Kind, exp.Target, captureKind)
		}
		if exp.Substring == "" {
			return fmt.Errorf("%s expectation %q requires a substring", exp.Kind, exp.Target)
		}
	case "visible", "hidden":
		if captureKind != "visible" && captureKind != "overlay" {
			return fmt.Errorf("%s expectation %q requires a visible or overlay capture, got %s", exp.Kind, exp.Target, captureKind)
		}
	}
	return nil
}
