package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Config      *SuiteConfig `yaml:"config,omitempty"`
	Tests       []TestCase   `yaml:"tests"`
}

// SuiteConfig overrides compiler settings for every test of a suite
type SuiteConfig struct {
	Standalone        bool `yaml:"standalone,omitempty"`
	Instrument        bool `yaml:"instrument,omitempty"`
	MaxFixpointPasses int  `yaml:"max_fixpoint_passes,omitempty"`
}

// TestCase represents a single test within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Source      string      `yaml:"source"`         // one or more top-level forms
	Standalone  *bool       `yaml:"standalone,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what result is expected from a test. Every field
// given must hold.
type Expectation struct {
	Output      string   `yaml:"output,omitempty"`       // exact target source of the unit
	Expanded    string   `yaml:"expanded,omitempty"`     // printed expansion of the last form
	Contains    []string `yaml:"contains,omitempty"`     // substrings of the target source
	NotContains []string `yaml:"not_contains,omitempty"` // absent from the target source
	Error       string   `yaml:"error,omitempty"`        // read|expand|syntax|semantic|internal
	Message     string   `yaml:"message,omitempty"`      // substring of the error
	Warnings    []string `yaml:"warnings,omitempty"`
	Defined     []string `yaml:"defined,omitempty"`
	Unresolved  []string `yaml:"unresolved,omitempty"`
}

// IsEmpty reports whether no expectation is given
func (e Expectation) IsEmpty() bool {
	return e.Output == "" && e.Expanded == "" && len(e.Contains) == 0 &&
		len(e.NotContains) == 0 && e.Error == "" && e.Warnings == nil &&
		e.Defined == nil && e.Unresolved == nil
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}
