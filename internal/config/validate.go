package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if !strings.Contains(c.Paths.OutputPattern, EpisodePlaceholder) {
		return fmt.Errorf("paths.output_pattern must contain %s", EpisodePlaceholder)
	}
	if !strings.Contains(c.Paths.InputPattern, EpisodePlaceholder) {
		return fmt.Errorf("paths.input_pattern must contain %s", EpisodePlaceholder)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.APIFormat {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.api_format must be openai or anthropic, got %q", c.LLM.APIFormat)
	}
	if c.LLM.TransportRetries < 0 {
		return errors.New("llm.transport_retries must be >= 0")
	}
	if c.LLM.TransportRetryDelaySeconds < 0 {
		return errors.New("llm.transport_retry_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.ChunkSize <= 0 {
		return errors.New("processing.chunk_size must be positive")
	}
	if err := ensureNonNegativeMap(map[string]int{
		"processing.parse_retries":             c.Processing.ParseRetries,
		"processing.parse_retry_delay_seconds": c.Processing.ParseRetryDelaySeconds,
		"processing.chunk_delay_ms":            c.Processing.ChunkDelayMillis,
	}); err != nil {
		return err
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
