// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/WSDOT-GIS/wsdot-route-gp/pkg/routeid"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string `yaml:"addr" validate:"required"`
	ReadTimeoutMS  int    `yaml:"readTimeoutMS" validate:"gte=0"`
	WriteTimeoutMS int    `yaml:"writeTimeoutMS" validate:"gte=0"`
	MaxConcurrent  int    `yaml:"maxConcurrent" validate:"gte=0"`
	CORSOrigin     string `yaml:"corsOrigin"`
}

// RoutesConfig points at the route layer.
type RoutesConfig struct {
	Path       string `yaml:"path" validate:"required"`
	IDProperty string `yaml:"idProperty" validate:"required"`
}

// LocatorConfig configures the locating engine defaults.
type LocatorConfig struct {
	SuffixPolicy   string  `yaml:"suffixPolicy" validate:"omitempty,oneof=none increasing decreasing both"`
	RoundingDigits *int    `yaml:"roundingDigits" validate:"omitempty,gte=0"`
	SearchRadius   float64 `yaml:"searchRadius" validate:"gte=0"`
	Workers        int     `yaml:"workers" validate:"gte=0"`
}

// Digits returns the configured rounding digits, or -1 (no rounding)
// when the field is absent.
func (c LocatorConfig) Digits() int {
	if c.RoundingDigits == nil {
		return -1
	}
	return *c.RoundingDigits
}

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Routes  RoutesConfig  `yaml:"routes" validate:"required"`
	Locator LocatorConfig `yaml:"locator"`
}

// Load reads, parses and validates a config file, applying defaults for
// optional fields.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	if cfg.Locator.SuffixPolicy == "" {
		cfg.Locator.SuffixPolicy = "both"
	}
	if cfg.Locator.SearchRadius == 0 {
		cfg.Locator.SearchRadius = 50
	}
	return cfg, nil
}

// Policy maps the configured suffix policy name to its enum value.
func (c LocatorConfig) Policy() routeid.SuffixPolicy {
	switch c.SuffixPolicy {
	case "none":
		return routeid.SuffixNone
	case "increasing":
		return routeid.SuffixIncreasing
	case "decreasing":
		return routeid.SuffixDecreasing
	}
	return routeid.SuffixBoth
}
