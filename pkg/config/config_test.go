package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Channels["405"] != "Hoechst 33342" {
		t.Errorf("default channel 405 = %q, expected Hoechst 33342", cfg.Channels["405"])
	}
	if cfg.Channels["TRANS"] != "Bright Field" {
		t.Errorf("default channel TRANS = %q, expected Bright Field", cfg.Channels["TRANS"])
	}
	if cfg.Output.Format != "zarr" {
		t.Errorf("default format = %q, expected zarr", cfg.Output.Format)
	}
	if !cfg.Output.Verbose {
		t.Error("default config should be verbose")
	}
	if cfg.Output.Strict || cfg.Output.Overwrite {
		t.Error("default config should be lenient and non-overwriting")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed for absent file: %v", err)
	}
	if cfg.Output.Format != "zarr" {
		t.Error("absent config file should yield defaults")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `channels:
  "111": "Channel A"
paths:
  imageDir: /data/images
scaling:
  z: 1.5
output:
  format: ometiff
  strict: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Channels["111"] != "Channel A" {
		t.Errorf("channel 111 = %q, expected Channel A", cfg.Channels["111"])
	}
	if cfg.Paths.ImageDir != "/data/images" {
		t.Errorf("imageDir = %q, expected /data/images", cfg.Paths.ImageDir)
	}
	if cfg.Scaling.Z == nil || *cfg.Scaling.Z != 1.5 {
		t.Errorf("scaling z = %v, expected 1.5", cfg.Scaling.Z)
	}
	if cfg.Output.Format != "ometiff" || !cfg.Output.Strict {
		t.Errorf("output = %+v, expected ometiff strict", cfg.Output)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Output.Format = "ometiff"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if reloaded.Output.Format != "ometiff" {
		t.Errorf("reloaded format = %q, expected ometiff", reloaded.Output.Format)
	}
	if len(reloaded.Channels) != len(cfg.Channels) {
		t.Errorf("reloaded %d channels, expected %d", len(reloaded.Channels), len(cfg.Channels))
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}
