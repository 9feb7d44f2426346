package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EpisodePlaceholder is replaced with the episode number in path patterns.
const EpisodePlaceholder = "{episode}"

// Paths contains input, output, and state locations.
type Paths struct {
	InputDir      string `toml:"input_dir"`
	InputPattern  string `toml:"input_pattern"`
	OutputDir     string `toml:"output_dir"`
	OutputPattern string `toml:"output_pattern"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	CampaignFile  string `toml:"campaign_file"`
}

// LLM contains connection settings for the text-generation service.
type LLM struct {
	APIFormat                  string `toml:"api_format"`
	APIKey                     string `toml:"api_key"`
	BaseURL                    string `toml:"base_url"`
	Model                      string `toml:"model"`
	MaxTokens                  int    `toml:"max_tokens"`
	Referer                    string `toml:"referer"`
	Title                      string `toml:"title"`
	TimeoutSeconds             int    `toml:"timeout_seconds"`
	TransportRetries           int    `toml:"transport_retries"`
	TransportRetryDelaySeconds int    `toml:"transport_retry_delay_seconds"`
}

// Processing contains chunking and retry settings for the segmentation pipeline.
type Processing struct {
	ChunkSize              int `toml:"chunk_size"`
	ParseRetries           int `toml:"parse_retries"`
	ParseRetryDelaySeconds int `toml:"parse_retry_delay_seconds"`
	// ChunkDelayMillis is the pause between chunk requests.
	ChunkDelayMillis     int `toml:"chunk_delay_ms"`
	FallbackExcerptChars int `toml:"fallback_excerpt_chars"`
}

// History contains configuration for the run ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for loreline.
//
// Configuration sections by subsystem:
//   - Paths: transcript inputs, document outputs, state and logs
//   - LLM: generation service endpoint, credentials and transport retries
//   - Processing: chunk size, parse retries and pacing
//   - History: SQLite ledger of processed episodes
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	LLM        LLM        `toml:"llm"`
	Processing Processing `toml:"processing"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loreline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	// The endpoint trio is resolved by normalize from whatever the file
	// sets and which credential is available.
	cfg.LLM.APIFormat, cfg.LLM.BaseURL, cfg.LLM.Model = "", "", ""

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loreline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InputPath returns the raw transcript location for an episode.
func (c *Config) InputPath(episode int) string {
	return filepath.Join(c.Paths.InputDir, expandPattern(c.Paths.InputPattern, episode))
}

// OutputPath returns the structured document location for an episode.
func (c *Config) OutputPath(episode int) string {
	return filepath.Join(c.Paths.OutputDir, expandPattern(c.Paths.OutputPattern, episode))
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "loreline.log")
}

func expandPattern(pattern string, episode int) string {
	return strings.ReplaceAll(pattern, EpisodePlaceholder, strconv.Itoa(episode))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved generation service settings.
type LLMConfig struct {
	APIFormat           string
	APIKey              string
	BaseURL             string
	Model               string
	MaxTokens           int
	Referer             string
	Title               string
	TimeoutSeconds      int
	TransportRetries    int
	TransportRetryDelay time.Duration
}

// GetLLM returns the generation service connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIFormat:           c.LLM.APIFormat,
		APIKey:              strings.TrimSpace(c.LLM.APIKey),
		BaseURL:             strings.TrimSpace(c.LLM.BaseURL),
		Model:               strings.TrimSpace(c.LLM.Model),
		MaxTokens:           c.LLM.MaxTokens,
		Referer:             strings.TrimSpace(c.LLM.Referer),
		Title:               strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:      c.LLM.TimeoutSeconds,
		TransportRetries:    c.LLM.TransportRetries,
		TransportRetryDelay: time.Duration(c.LLM.TransportRetryDelaySeconds) * time.Second,
	}
}

// ParseRetryDelay returns the fixed pause between malformed-response retries.
func (c *Config) ParseRetryDelay() time.Duration {
	return time.Duration(c.Processing.ParseRetryDelaySeconds) * time.Second
}

// ChunkDelay returns the pause observed between chunk requests.
func (c *Config) ChunkDelay() time.Duration {
	return time.Duration(c.Processing.ChunkDelayMillis) * time.Millisecond
}
