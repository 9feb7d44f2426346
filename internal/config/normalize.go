package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CampaignFile = strings.TrimSpace(c.Paths.CampaignFile); c.Paths.CampaignFile != "" {
		if c.Paths.CampaignFile, err = expandPath(c.Paths.CampaignFile); err != nil {
			return fmt.Errorf("paths.campaign_file: %w", err)
		}
	}
	c.Paths.InputPattern = strings.TrimSpace(c.Paths.InputPattern)
	if c.Paths.InputPattern == "" {
		c.Paths.InputPattern = defaultInputPattern
	}
	c.Paths.OutputPattern = strings.TrimSpace(c.Paths.OutputPattern)
	if c.Paths.OutputPattern == "" {
		c.Paths.OutputPattern = defaultOutputPattern
	}
	if c.History.Path = strings.TrimSpace(c.History.Path); c.History.Path != "" {
		if c.History.Path, err = expandPath(c.History.Path); err != nil {
			return fmt.Errorf("history.path: %w", err)
		}
	}
	return nil
}

// anthropicKeyEnv holds a key for the messages API, never for OpenRouter.
const anthropicKeyEnv = "ANTHROPIC_API_KEY"

func (c *Config) normalizeLLM() {
	keySource := ""
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, name := range []string{"LORELINE_API_KEY", "OPENROUTER_API_KEY", anthropicKeyEnv} {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				keySource = name
				break
			}
		}
	}

	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.APIFormat = strings.ToLower(strings.TrimSpace(c.LLM.APIFormat))
	if c.LLM.APIFormat == "" {
		c.LLM.APIFormat = defaultLLMAPIFormat
		if keySource == anthropicKeyEnv && c.LLM.BaseURL == "" {
			c.LLM.APIFormat = "anthropic"
		}
	}
	anthropic := c.LLM.APIFormat == "anthropic"
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
		if anthropic {
			c.LLM.BaseURL = defaultAnthropicBaseURL
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
		if anthropic {
			c.LLM.Model = defaultAnthropicModel
		}
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.FallbackExcerptChars <= 0 {
		c.Processing.FallbackExcerptChars = defaultFallbackExcerptChars
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
