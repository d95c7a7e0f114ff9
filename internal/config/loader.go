package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces environment overrides. A double underscore separates
// path segments, e.g. KEYMINT_SERVER__HTTP_PORT -> server.http_port.
const envPrefix = "KEYMINT_"

// Loader merges configuration sources with precedence, highest first:
// command-line flags, environment variables, the YAML config file,
// built-in defaults.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader loads configuration from the given file path and the
// environment. An empty path, or a missing file at a defaulted path, is
// tolerated and falls back to the other sources.
func NewLoader(path string) (*Loader, error) {
	return NewLoaderWithFlags(path, nil)
}

// NewLoaderWithFlags additionally applies changed command-line flags on top
func NewLoaderWithFlags(path string, flags *pflag.FlagSet) (*Loader, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		mapping := GetFlagMapping()
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			path, ok := mapping[f.Name]
			if !ok {
				return "", nil
			}
			return path, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	return &Loader{k: k}, nil
}

// envKeyToPath maps KEYMINT_SERVER__HTTP_PORT to server.http_port
func envKeyToPath(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Get unmarshals the merged sources over the defaults
func (l *Loader) Get() (*Config, error) {
	cfg := Default()
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
