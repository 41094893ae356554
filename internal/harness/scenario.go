package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/testutil"
)

// DefaultNow is the scenario clock when a scenario sets none.
var DefaultNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// Scenario is one conformance scenario.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Now is the RFC 3339 starting time of the scenario clock.
	Now string `yaml:"now,omitempty"`

	// Timeout overrides both host timeouts, e.g. "50ms".
	Timeout string `yaml:"timeout,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step submits exactly one of Query or Mutation.
type Step struct {
	Name string `yaml:"name"`

	// Advance moves the clock forward before the request, e.g. "61s".
	Advance string `yaml:"advance,omitempty"`

	Query    *query.QueryRequest    `yaml:"query,omitempty"`
	Mutation *query.MutationRequest `yaml:"mutation,omitempty"`

	// Host lists the replies the fake host gives, in call order.
	Host []testutil.Reply `yaml:"host,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Request returns the step's request.
func (s *Step) Request() query.Request {
	if s.Query != nil {
		return s.Query
	}
	return s.Mutation
}

// Expect is checked against a step's outcome. Unset fields are not
// checked; Metadata is a subset match.
type Expect struct {
	Success   *bool          `yaml:"success,omitempty"`
	ErrorKind string         `yaml:"error_kind,omitempty"`
	Strategy  string         `yaml:"strategy,omitempty"`
	FromCache *bool          `yaml:"from_cache,omitempty"`
	IDs       []string       `yaml:"ids,omitempty"`
	HostCalls *int           `yaml:"host_calls,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty"`

	// Outcome is the journal outcome of the step's last execution entry.
	Outcome string `yaml:"outcome,omitempty"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks required fields and parses the time values.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.start(); err != nil {
		return err
	}
	if _, err := s.timeout(); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if (step.Query == nil) == (step.Mutation == nil) {
			return fmt.Errorf("steps[%d]: exactly one of query or mutation is required", i)
		}
		if _, err := step.advance(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func (s *Scenario) start() (time.Time, error) {
	if s.Now == "" {
		return DefaultNow, nil
	}
	t, err := time.Parse(time.RFC3339, s.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

func (s *Scenario) timeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	return d, nil
}

func (s *Step) advance() (time.Duration, error) {
	if s.Advance == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(s.Advance)
	if err != nil {
		return 0, fmt.Errorf("advance: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("advance: %s is negative", s.Advance)
	}
	return d, nil
}
