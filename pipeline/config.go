package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/redactor/detect"
)

// Duration decodes Go duration strings ("90s", "2m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// ClassifierConfig holds the text-coverage thresholds.
type ClassifierConfig struct {
	// ThresholdLow: coverage below it classifies the page as scanned.
	ThresholdLow float64 `yaml:"threshold_low"`
	// ThresholdHigh: coverage above it classifies the page as text.
	ThresholdHigh float64 `yaml:"threshold_high"`
}

// OCRSettings tune rasterization and recognition.
type OCRSettings struct {
	DPI                 float64  `yaml:"dpi"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	PageTimeout         Duration `yaml:"page_timeout"`
	Languages           []string `yaml:"languages"`
	PSM                 int      `yaml:"psm"`
	Whitelist           string   `yaml:"whitelist"`
}

// Config is the full run configuration. The zero value is not usable; start
// from DefaultConfig or LoadConfig.
type Config struct {
	// Terms are exact search terms, matched case-insensitively unless
	// CaseSensitive is set.
	Terms         []string `yaml:"terms"`
	CaseSensitive bool     `yaml:"case_sensitive"`
	// Patterns are regular expressions.
	Patterns []string `yaml:"patterns"`
	// CommonPatterns names entries of detect.CommonPatterns (ssn, email,
	// phone, credit_card, ip_address, date, zip_code).
	CommonPatterns []string `yaml:"common_patterns"`

	Classifier ClassifierConfig `yaml:"classifier"`
	OCR        OCRSettings      `yaml:"ocr"`

	// Fill is the redaction fill color name (black, white, red, green,
	// blue, gray).
	Fill string `yaml:"fill"`
	// MergeOverlaps collapses overlapping or adjacent boxes before
	// application.
	MergeOverlaps bool `yaml:"merge_overlaps"`

	Sanitize bool `yaml:"sanitize"`
	Verify   bool `yaml:"verify"`
}

// DefaultConfig returns the defaults used when no configuration file is
// supplied.
func DefaultConfig() Config {
	return Config{
		Classifier: ClassifierConfig{ThresholdLow: 0.02, ThresholdHigh: 0.20},
		OCR: OCRSettings{
			DPI:                 300,
			ConfidenceThreshold: 30,
			PageTimeout:         Duration(2 * time.Minute),
		},
		Fill:          "black",
		MergeOverlaps: true,
		Sanitize:      true,
		Verify:        true,
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Criteria compiles the configured terms and patterns, resolving
// CommonPatterns names. Invalid patterns and unknown names fail here, before
// any detection runs.
func (c Config) Criteria() (detect.Criteria, error) {
	patterns := append([]string(nil), c.Patterns...)
	for _, name := range c.CommonPatterns {
		p, ok := detect.CommonPatterns[name]
		if !ok {
			return detect.Criteria{}, fmt.Errorf("unknown common pattern %q", name)
		}
		patterns = append(patterns, p)
	}
	criteria, err := detect.Compile(c.Terms, patterns)
	if err != nil {
		return detect.Criteria{}, err
	}
	if c.CaseSensitive {
		for i := range criteria.Terms {
			criteria.Terms[i].CaseSensitive = true
		}
	}
	return criteria, nil
}
