package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.toml", `
[server]
port = 9090
host = "0.0.0.0"
additional_ports = [9091]

[transcription]
model = "medium"
language = "en"
remove_silence = true

[export]
default_format = "all"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if len(cfg.Server.AdditionalPorts) != 1 || cfg.Server.AdditionalPorts[0] != 9091 {
		t.Errorf("additional_ports = %v", cfg.Server.AdditionalPorts)
	}
	if cfg.Transcription.Model != "medium" || cfg.Transcription.Language != "en" {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
	if !cfg.Transcription.RemoveSilence {
		t.Error("remove_silence not parsed")
	}
	if cfg.Export.DefaultFormat != "all" {
		t.Errorf("default_format = %q", cfg.Export.DefaultFormat)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 8080

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host default = %q", cfg.Server.Host)
	}
	if cfg.Server.StaticFilesDir != "www" {
		t.Errorf("static_files_dir default = %q", cfg.Server.StaticFilesDir)
	}
	if cfg.Server.MaxUploadMB != 512 {
		t.Errorf("max_upload_mb default = %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLiteBasePath != "data" {
		t.Errorf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.Transcription.Model != "base" || cfg.Transcription.Language != "el" {
		t.Errorf("transcription defaults = %+v", cfg.Transcription)
	}
	if cfg.Transcription.SampleRate != 16000 || cfg.Transcription.Channels != 1 {
		t.Errorf("audio defaults = %d Hz / %d ch", cfg.Transcription.SampleRate, cfg.Transcription.Channels)
	}
	if cfg.Fallback.Model != "gemini-2.0-flash" || cfg.Fallback.TimeoutSecs != 120 {
		t.Errorf("fallback defaults = %+v", cfg.Fallback)
	}
	if cfg.Export.DefaultFormat != "txt" {
		t.Errorf("default_format default = %q", cfg.Export.DefaultFormat)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad additional port", func(c *Config) { c.Server.AdditionalPorts = []int{-1} }},
		{"duplicate port", func(c *Config) { c.Server.AdditionalPorts = []int{8080} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "postgres" }},
		{"bad export format", func(c *Config) { c.Export.DefaultFormat = "pdf" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Server.Port = 8080
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GREEKDROP_DEBUG", "1")
	t.Setenv("GREEKDROP_FORCE_CPU", "true")
	t.Setenv("GREEKDROP_FORCE_GPU", "")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.ApplyEnvOverrides()

	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Hardware.ForceCPU {
		t.Error("GREEKDROP_FORCE_CPU not applied")
	}
	if cfg.Hardware.ForceGPU {
		t.Error("empty GREEKDROP_FORCE_GPU should not apply")
	}
	if cfg.Fallback.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.Fallback.APIKey)
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Setenv("GREEKDROP_TEST_BOOL", tt.value)
		if got := envBool("GREEKDROP_TEST_BOOL"); got != tt.want {
			t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoadWithFallbackPrefersExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.toml", "[server]\nport = 7070\n")

	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
}

func TestLoadWithFallbackNoConfigAnywhere(t *testing.T) {
	if _, err := LoadWithFallback(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error when no config exists")
	}
}
