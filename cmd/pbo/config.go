package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meigma/pbo"
)

// config holds settings merged from defaults, an optional config file,
// PBO_* environment variables and flags, in increasing precedence.
type config struct {
	StoreTimestamps bool   `mapstructure:"store_timestamps"`
	Workers         int    `mapstructure:"workers"`
	Overwrite       bool   `mapstructure:"overwrite"`
	PreserveTimes   bool   `mapstructure:"preserve_times"`
	Separator       string `mapstructure:"separator"`
	OffsetMode      string `mapstructure:"offset_mode"`
	Overlapping     bool   `mapstructure:"overlapping_copies"`
	ZstdLevel       int    `mapstructure:"zstd_level"`
	Verbose         bool   `mapstructure:"verbose"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("store_timestamps", false)
	v.SetDefault("workers", 0)
	v.SetDefault("overwrite", false)
	v.SetDefault("preserve_times", false)
	v.SetDefault("separator", pbo.DefaultSeparator)
	v.SetDefault("offset_mode", pbo.OffsetOriginalSize.String())
	v.SetDefault("overlapping_copies", false)
	v.SetDefault("zstd_level", 0)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("PBO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads path, if set, and decodes the merged settings. The file
// format follows its extension (toml, yaml, json).
func loadConfig(v *viper.Viper, path string) (*config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := parseOffsetMode(cfg.OffsetMode); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseOffsetMode(s string) (pbo.OffsetMode, error) {
	switch strings.ToLower(s) {
	case "", pbo.OffsetOriginalSize.String():
		return pbo.OffsetOriginalSize, nil
	case pbo.OffsetDataSize.String():
		return pbo.OffsetDataSize, nil
	default:
		return 0, fmt.Errorf("invalid offset_mode %q (want %q or %q)",
			s, pbo.OffsetOriginalSize.String(), pbo.OffsetDataSize.String())
	}
}
