package config

import (
	"reflect"
	"strings"

	"github.com/spf13/pflag"
)

// fieldInfo stores information about a config field for flag registration
type fieldInfo struct {
	configPath string // e.g. "server.http_port"
	flagName   string // e.g. "server-http-port"
	usage      string
	kind       reflect.Kind
}

// buildFlagMapping walks the Config struct recursively and builds a map
// from flag names to config paths using the koanf struct tags.
func buildFlagMapping() (map[string]string, []fieldInfo) {
	var fields []fieldInfo
	walkStruct(reflect.TypeOf(Config{}), "", &fields)

	mapping := make(map[string]string, len(fields))
	for _, field := range fields {
		mapping[field.flagName] = field.configPath
	}
	return mapping, fields
}

// walkStruct recursively collects scalar fields tagged with koanf paths
func walkStruct(t reflect.Type, parentPath string, fields *[]fieldInfo) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		koanfTag := field.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" {
			continue
		}

		configPath := koanfTag
		if parentPath != "" {
			configPath = parentPath + "." + koanfTag
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}

		switch fieldType.Kind() {
		case reflect.Struct:
			walkStruct(fieldType, configPath, fields)

		case reflect.Slice, reflect.Map:
			// Too structured for command-line flags; file/env only
			continue

		default:
			if isScalarKind(fieldType.Kind()) {
				*fields = append(*fields, fieldInfo{
					configPath: configPath,
					flagName:   configPathToFlagName(configPath),
					usage:      field.Tag.Get("usage"),
					kind:       fieldType.Kind(),
				})
			}
		}
	}
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String, reflect.Bool,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// configPathToFlagName converts a config path to a flag name
// e.g. "server.http_port" -> "server-http-port"
func configPathToFlagName(configPath string) string {
	flagName := strings.ReplaceAll(configPath, ".", "-")
	return strings.ReplaceAll(flagName, "_", "-")
}

// RegisterFlags registers command-line flags for all scalar config fields
func RegisterFlags(flagSet *pflag.FlagSet) {
	_, fields := buildFlagMapping()

	for _, field := range fields {
		if flagSet.Lookup(field.flagName) != nil {
			continue
		}
		switch field.kind {
		case reflect.String:
			flagSet.String(field.flagName, "", field.usage)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			flagSet.Int(field.flagName, 0, field.usage)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			flagSet.Uint(field.flagName, 0, field.usage)
		case reflect.Bool:
			flagSet.Bool(field.flagName, false, field.usage)
		case reflect.Float32, reflect.Float64:
			flagSet.Float64(field.flagName, 0.0, field.usage)
		}
	}
}

// GetFlagMapping returns the mapping from flag names to config paths
func GetFlagMapping() map[string]string {
	mapping, _ := buildFlagMapping()
	return mapping
}
