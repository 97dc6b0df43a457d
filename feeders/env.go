// Package feeders provides configuration feeders for the app config and
// plugin sections: YAML and TOML files plus prefixed environment variables.
//
// Every feeder implements golobby's config.Feeder for the app's own config
// and FeedKey for named plugin sections.
package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// DefaultEnvPrefix is the prefix used by NewEnvFeeder.
const DefaultEnvPrefix = "STEPPER"

// EnvFeeder reads environment variables named after a field's `env` tag.
// The app config reads PREFIX_TAG; a section reads PREFIX_SECTION_TAG.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder creates an EnvFeeder with DefaultEnvPrefix.
func NewEnvFeeder() EnvFeeder {
	return EnvFeeder{Prefix: DefaultEnvPrefix}
}

// NewPrefixedEnvFeeder creates an EnvFeeder with a custom prefix.
func NewPrefixedEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed populates structure from PREFIX_TAG variables.
func (f EnvFeeder) Feed(structure any) error {
	return f.fill(structure, f.Prefix)
}

// FeedKey populates structure from PREFIX_KEY_TAG variables.
func (f EnvFeeder) FeedKey(key string, structure any) error {
	return f.fill(structure, f.Prefix+"_"+normalizeKey(key))
}

func (f EnvFeeder) fill(structure any, prefix string) error {
	if f.Prefix == "" {
		return ErrEnvEmptyPrefix
	}
	rv := reflect.ValueOf(structure)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	return processStructFields(rv.Elem(), strings.ToUpper(prefix))
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key))
}

func processStructFields(rv reflect.Value, prefix string) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if err := processField(field, &fieldType, prefix); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func processField(field reflect.Value, fieldType *reflect.StructField, prefix string) error {
	switch {
	case field.Kind() == reflect.Struct:
		return processStructFields(field, prefix)
	case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
		return processStructFields(field.Elem(), prefix)
	}

	envTag, exists := fieldType.Tag.Lookup("env")
	if !exists || envTag == "" || envTag == "-" {
		return nil
	}

	envName := prefix + "_" + strings.ToUpper(envTag)
	envValue, ok := os.LookupEnv(envName)
	if !ok || envValue == "" {
		return nil
	}
	return setFieldValue(field, envValue)
}

var durationType = reflect.TypeFor[time.Duration]()

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}

	// cast treats durations as plain integers
	if field.Type() == durationType {
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return fmt.Errorf("cannot convert %q to duration: %w", strValue, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}
	field.Set(reflect.ValueOf(convertedValue).Convert(field.Type()))
	return nil
}
