package feeders

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileFeeder feeds the app config and named sections from one file.
type FileFeeder interface {
	Feed(structure any) error
	FeedKey(key string, target any) error
}

// ForFile picks a feeder by file extension. JSON files are read by the
// YAML feeder, which accepts JSON documents.
func ForFile(path string) (FileFeeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
	}
}
