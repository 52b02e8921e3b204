package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Paths         PathsConfig         `toml:"paths"`         // Working directory layout
	Storage       StorageConfig       `toml:"storage"`       // Data persistence settings
	Transcription TranscriptionConfig `toml:"transcription"` // Local whisper engine settings
	Fallback      FallbackConfig      `toml:"fallback"`      // Cloud fallback engine settings
	Hardware      HardwareConfig      `toml:"hardware"`      // Device selection overrides
	Export        ExportConfig        `toml:"export"`        // Transcript export settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // Primary HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (127.0.0.1 keeps the UI local-only)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts  []int  `toml:"additional_ports"`      // Additional HTTP ports to listen on
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www")
	MaxUploadMB      int    `toml:"max_upload_mb"`         // Maximum accepted upload size in megabytes
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
	Dir    string `toml:"dir"`    // Directory for per-run log files (empty disables file logging)
}

// PathsConfig contains the working directory layout
type PathsConfig struct {
	TranscriptionsDir string `toml:"transcriptions_dir"` // Directory for exported transcript files
	UploadsDir        string `toml:"uploads_dir"`        // Directory for files uploaded through the browser UI
	ModelsDir         string `toml:"models_dir"`         // Directory holding ggml whisper model files
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (actual filename is greekdrop-YYYY-MM-DD.db)
}

// TranscriptionConfig contains settings for the local whisper engine
// and the ffmpeg/ffprobe preprocessing tools it depends on
type TranscriptionConfig struct {
	Model    string `toml:"model"`    // Whisper model size tag (e.g., "base", "small", "medium")
	Language string `toml:"language"` // Target language code (e.g., "el" for Greek)

	// External tool paths
	WhisperPath string `toml:"whisper_path"` // Path to the whisper-cli executable
	FFmpegPath  string `toml:"ffmpeg_path"`  // Path to the ffmpeg executable
	FFprobePath string `toml:"ffprobe_path"` // Path to the ffprobe executable

	// Audio preprocessing settings
	SampleRate    int    `toml:"sample_rate"`    // Target sample rate in Hz (whisper expects 16000)
	Channels      int    `toml:"channels"`       // Target channel count (1 for mono)
	RemoveSilence bool   `toml:"remove_silence"` // Apply a silenceremove filter during conversion
	SilenceFilter string `toml:"silence_filter"` // ffmpeg audio filter expression used when remove_silence is set

	// Subprocess timeouts
	ProbeTimeoutSecs      int `toml:"probe_timeout_seconds"`      // Timeout for ffprobe duration queries
	ConvertTimeoutSecs    int `toml:"convert_timeout_seconds"`    // Timeout for ffmpeg conversion
	TranscribeTimeoutSecs int `toml:"transcribe_timeout_seconds"` // Timeout for a single whisper run
}

// FallbackConfig contains settings for the cloud fallback engine
type FallbackConfig struct {
	APIKey      string `toml:"api_key"`         // Gemini API key (GEMINI_API_KEY env var takes precedence)
	Model       string `toml:"model"`           // Gemini model to use (e.g., "gemini-2.0-flash")
	TimeoutSecs int    `toml:"timeout_seconds"` // HTTP timeout for fallback requests in seconds
}

// HardwareConfig contains device selection overrides
type HardwareConfig struct {
	ForceCPU bool `toml:"force_cpu"` // Force CPU transcription even when a GPU is detected
	ForceGPU bool `toml:"force_gpu"` // Force GPU transcription even when detection fails
}

// ExportConfig contains transcript export configuration
type ExportConfig struct {
	DefaultFormat string `toml:"default_format"` // Format used when a job does not specify one: txt, srt, vtt, json, or all
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := make(map[int]bool)
	portsSeen[c.Server.Port] = true
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.StaticFilesDir == "" {
		c.Server.StaticFilesDir = "www"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 512
	}

	// Validate logging config
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}

	// Validate paths config
	if c.Paths.TranscriptionsDir == "" {
		c.Paths.TranscriptionsDir = "transcriptions"
	}
	if c.Paths.UploadsDir == "" {
		c.Paths.UploadsDir = "uploads"
	}
	if c.Paths.ModelsDir == "" {
		c.Paths.ModelsDir = "models"
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	// Validate transcription config
	if c.Transcription.Model == "" {
		c.Transcription.Model = "base"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "el"
	}
	if c.Transcription.WhisperPath == "" {
		c.Transcription.WhisperPath = "whisper-cli"
	}
	if c.Transcription.FFmpegPath == "" {
		c.Transcription.FFmpegPath = "ffmpeg"
	}
	if c.Transcription.FFprobePath == "" {
		c.Transcription.FFprobePath = "ffprobe"
	}
	if c.Transcription.SampleRate <= 0 {
		c.Transcription.SampleRate = 16000
	}
	if c.Transcription.Channels <= 0 {
		c.Transcription.Channels = 1
	}
	if c.Transcription.SilenceFilter == "" {
		c.Transcription.SilenceFilter = "silenceremove=start_periods=1:stop_periods=-1:start_threshold=-50dB:stop_threshold=-50dB:start_silence=2:stop_silence=2"
	}
	if c.Transcription.ProbeTimeoutSecs <= 0 {
		c.Transcription.ProbeTimeoutSecs = 30
	}
	if c.Transcription.ConvertTimeoutSecs <= 0 {
		c.Transcription.ConvertTimeoutSecs = 600
	}
	if c.Transcription.TranscribeTimeoutSecs <= 0 {
		c.Transcription.TranscribeTimeoutSecs = 3600
	}

	// Validate hardware config: both overrides set is a contradiction the
	// device resolver settles in favor of CPU, warn-level only
	if c.Hardware.ForceCPU && c.Hardware.ForceGPU {
		fmt.Printf("WARN: both force_cpu and force_gpu are set - CPU wins\n")
	}

	// Validate fallback config
	if c.Fallback.Model == "" {
		c.Fallback.Model = "gemini-2.0-flash"
	}
	if c.Fallback.TimeoutSecs <= 0 {
		c.Fallback.TimeoutSecs = 120
	}
	if c.Fallback.APIKey == "" {
		fmt.Printf("WARN: No Gemini API key provided - cloud fallback transcription will be disabled\n")
	}

	// Validate export config
	switch c.Export.DefaultFormat {
	case "":
		c.Export.DefaultFormat = "txt"
	case "txt", "srt", "vtt", "json", "all":
	default:
		return fmt.Errorf("invalid default export format: %s", c.Export.DefaultFormat)
	}

	return nil
}

// ApplyEnvOverrides applies GREEKDROP_* environment variable overrides.
// Env vars win over file values, command-line flags win over both.
func (c *Config) ApplyEnvOverrides() {
	if envBool("GREEKDROP_DEBUG") {
		c.Logging.Level = "debug"
	}
	if envBool("GREEKDROP_FORCE_CPU") {
		c.Hardware.ForceCPU = true
	}
	if envBool("GREEKDROP_FORCE_GPU") {
		c.Hardware.ForceGPU = true
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Fallback.APIKey = key
	}
}

// envBool reports whether the named env var holds a truthy value
func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
