package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every conceptrag environment variable carries,
// so CONCEPTRAG_STORE_PATH overrides Config.Store.Path.
const EnvPrefix = "CONCEPTRAG_"

// Load builds the layered configuration: hardcoded defaults, overridden by
// configPath's YAML contents (if non-empty and the file exists), overridden
// by CONCEPTRAG_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := readConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyTransformer), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKeyTransformer turns CONCEPTRAG_SEEDER_SOURCE_DIR into
// seeder.source_dir: strip the prefix, lowercase, split the first
// remaining underscore into the section boundary, keep the rest of the
// field name underscored to match the struct tags above.
func envKeyTransformer(s string) string {
	trimmed := strings.TrimPrefix(s, EnvPrefix)
	lower := strings.ToLower(trimmed)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return content, nil
}
