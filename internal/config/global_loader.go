package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads global configuration from ~/.digest/config.yml.
// Returns default values if file doesn't exist (not an error).
// Environment variables override file values (DIGEST_* prefix).
func LoadGlobalConfig() (*GlobalConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	digestDir := filepath.Join(home, ".digest")

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(digestDir)

	v.SetEnvPrefix("DIGEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("runtime.python_dir")
	v.SetDefault("runtime.python_dir", filepath.Join(digestDir, "python"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
