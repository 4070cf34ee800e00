package strata

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stratahq/strata/schemas"
)

// fileConfig is the on-disk YAML shape. Only the serializable subset of the
// kit config lives here; adapters, resolvers, and loggers are wired in code.
type fileConfig struct {
	Providers          map[schemas.ModelProvider]*schemas.ProviderConfig `yaml:"providers"`
	RegistryTTLSeconds int                                               `yaml:"registry_ttl_seconds"`
	LearnedTTLSeconds  int                                               `yaml:"learned_ttl_seconds"`
	LogLevel           schemas.LogLevel                                  `yaml:"log_level"`
}

var envPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvPlaceholders substitutes ${VAR} references with environment
// values. Unset variables expand to the empty string, which key
// normalization then drops from credential pools.
func expandEnvPlaceholders(raw []byte) []byte {
	return envPlaceholderRegex.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envPlaceholderRegex.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadConfig reads a YAML kit config from disk. A .env file next to the
// working directory is loaded first, if present, so ${VAR} placeholders in
// the YAML can reference it.
func LoadConfig(path string) (*schemas.KitConfig, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses YAML config bytes after env placeholder expansion.
func ParseConfig(raw []byte) (*schemas.KitConfig, error) {
	var parsed fileConfig
	if err := yaml.Unmarshal(expandEnvPlaceholders(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(parsed.Providers) == 0 {
		return nil, schemas.NewValidationError("", "config declares no providers")
	}

	config := &schemas.KitConfig{
		Providers:          parsed.Providers,
		RegistryTTLSeconds: parsed.RegistryTTLSeconds,
		LearnedTTLSeconds:  parsed.LearnedTTLSeconds,
	}
	if parsed.LogLevel != "" {
		config.Logger = NewDefaultLogger(parsed.LogLevel)
	}
	return config, nil
}
