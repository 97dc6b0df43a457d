package feeders

import (
	"fmt"

	"github.com/golobby/config/v3/pkg/feeder"
	"gopkg.in/yaml.v3"
)

// YamlFeeder reads the app config from the top level of a YAML file and
// plugin sections from top-level keys.
type YamlFeeder struct {
	feeder.Yaml
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{feeder.Yaml{Path: filePath}}
}

// FeedKey decodes the value stored under key into target. A missing key
// leaves target untouched.
func (y YamlFeeder) FeedKey(key string, target any) error {
	var allData map[string]any
	if err := y.Feed(&allData); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileRead, y.Path, err)
	}

	value, exists := allData[key]
	if !exists {
		return nil
	}

	// Remarshal so that yaml's own decoding rules (durations, nested
	// structs) apply to the section
	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValueConversion, key, err)
	}
	if err = yaml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValueConversion, key, err)
	}
	return nil
}
