package config

import (
	"errors"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ErrEmptyConfigPath defines a sentinel error for an empty config path.
var ErrEmptyConfigPath = errors.New("empty configuration file path")

// ParseConfig attempts to read and parse configuration from the given file
// path. An error is returned if reading or parsing the config fails.
func ParseConfig(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		return cfg, ErrEmptyConfigPath
	}

	viper.AutomaticEnv()
	// Allow nested env vars to be read with underscore separators.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		return cfg, err
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&cfg, decodeHook); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}
