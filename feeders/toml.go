package feeders

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/golobby/config/v3/pkg/feeder"
)

// TomlFeeder is a feeder that reads TOML files. Plugin sections live in
// tables named after the section.
type TomlFeeder struct {
	feeder.Toml
}

func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{feeder.Toml{Path: filePath}}
}

// FeedKey reads a TOML file and extracts a specific table
func (t TomlFeeder) FeedKey(key string, target any) error {
	var allData map[string]any
	if err := t.Feed(&allData); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileRead, t.Path, err)
	}

	value, exists := allData[key]
	if !exists {
		return nil
	}

	valueBytes, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValueConversion, key, err)
	}
	if err = toml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValueConversion, key, err)
	}
	return nil
}
