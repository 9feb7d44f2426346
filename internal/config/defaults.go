package config

const (
	defaultInputDir               = "/tmp"
	defaultInputPattern           = "campaign4-raw-ep{episode}.json"
	defaultOutputDir              = "src/data/campaigns"
	defaultOutputPattern          = "campaign4-episode{episode}.json"
	defaultStateDir               = "~/.local/share/loreline"
	defaultLogDir                 = "~/.local/share/loreline/logs"
	defaultLLMAPIFormat           = "openai"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnthropicBaseURL       = "https://api.anthropic.com/v1/messages"
	defaultLLMModel               = "anthropic/claude-sonnet-4"
	defaultAnthropicModel         = "claude-sonnet-4-20250514"
	defaultLLMMaxTokens           = 6000
	defaultLLMReferer             = "https://github.com/loreline/loreline"
	defaultLLMTitle               = "loreline"
	defaultLLMTimeoutSeconds      = 120
	defaultTransportRetries       = 2
	defaultTransportRetryDelay    = 5
	defaultChunkSize              = 12000
	defaultParseRetries           = 2
	defaultParseRetryDelaySeconds = 2
	defaultChunkDelayMillis       = 1000
	defaultFallbackExcerptChars   = 500
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:      defaultInputDir,
			InputPattern:  defaultInputPattern,
			OutputDir:     defaultOutputDir,
			OutputPattern: defaultOutputPattern,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
		},
		LLM: LLM{
			APIFormat:                  defaultLLMAPIFormat,
			BaseURL:                    defaultLLMBaseURL,
			Model:                      defaultLLMModel,
			MaxTokens:                  defaultLLMMaxTokens,
			Referer:                    defaultLLMReferer,
			Title:                      defaultLLMTitle,
			TimeoutSeconds:             defaultLLMTimeoutSeconds,
			TransportRetries:           defaultTransportRetries,
			TransportRetryDelaySeconds: defaultTransportRetryDelay,
		},
		Processing: Processing{
			ChunkSize:              defaultChunkSize,
			ParseRetries:           defaultParseRetries,
			ParseRetryDelaySeconds: defaultParseRetryDelaySeconds,
			ChunkDelayMillis:       defaultChunkDelayMillis,
			FallbackExcerptChars:   defaultFallbackExcerptChars,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
