// Package config provides configuration loading and management for
// stackstoome. It handles loading configuration from YAML files and
// provides default values matching the acquisition this tool was built
// around.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Channels maps filename channel codes to display names
	Channels map[string]string `yaml:"channels"`

	// Paths holds the default input and output locations
	Paths struct {
		// ImageDir is the directory containing raw 2D slice TIFF files
		ImageDir string `yaml:"imageDir"`

		// LabelDir is the optional directory of segmentation mask volumes
		LabelDir string `yaml:"labelDir"`

		// ScanInfo is the optional path of the ScanInfo.xml sidecar
		ScanInfo string `yaml:"scanInfo"`

		// Output is the conversion target path
		Output string `yaml:"output"`
	} `yaml:"paths"`

	// Scaling optionally overrides the physical voxel scaling in
	// micrometers; unset values fall back to the ScanInfo sidecar
	Scaling struct {
		Z *float64 `yaml:"z"`
		Y *float64 `yaml:"y"`
		X *float64 `yaml:"x"`
	} `yaml:"scaling"`

	// Output parameters
	Output struct {
		// Format selects the serialization target: "zarr" or "ometiff"
		Format string `yaml:"format"`

		// Overwrite allows replacing an existing output artifact
		Overwrite bool `yaml:"overwrite"`

		// Strict makes an unmapped channel code a fatal error instead of
		// synthesizing an Unknown_<code> placeholder name
		Strict bool `yaml:"strict"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values. The default
// channel map covers the ZEISS LSM 880 organoid acquisitions this tool
// was written for.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Channels = map[string]string{
		"405":   "Hoechst 33342",
		"488":   "Concanavalin A",
		"555":   "WGA+ Phalloidin",
		"640":   "Mitotracker Deep Red",
		"TRANS": "Bright Field",
	}

	cfg.Output.Format = "zarr"
	cfg.Output.Overwrite = false
	cfg.Output.Strict = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
