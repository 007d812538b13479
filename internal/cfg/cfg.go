package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// LLM providers selectable with -llm-provider.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Config adds bloomwatch-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	LLMProvider          string
	ClaudeAPIKey         string
	ClaudeModel          string
	GeminiAPIKey         string
	GeminiModel          string
	LLMRequestsPerMinute int
	LLMTimeoutSeconds    int

	PollIntervalSeconds int
	RedisURL            string
	SignalPrefix        string
	DatabaseURL         string

	SlackWebhookURL string
	SlackMinLevel   string

	MotherToken string
	FamilyToken string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")

	fs.StringVar(&c.LLMProvider, "llm-provider", ProviderClaude, "AI collaborator for sentiment and vision analysis (claude|gemini)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for the Gemini provider")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-2.5-flash", "Gemini model to use")
	fs.IntVar(&c.LLMRequestsPerMinute, "llm-requests-per-minute", 10, "collaborator request budget per minute (0 = unlimited)")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 60, "per-call timeout for collaborator requests (1..600)")

	fs.IntVar(&c.PollIntervalSeconds, "poll-interval-seconds", 3, "seconds between signal store polls (1..3600)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for the shared signal store (empty = in-memory store)")
	fs.StringVar(&c.SignalPrefix, "signal-prefix", "bloomwatch:signal:", "Redis key prefix for signals and the change channel")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for vision logs (empty = in-memory store)")

	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for alert change notifications")
	fs.StringVar(&c.SlackMinLevel, "slack-min-level", "yellow", "lowest alert level sent to Slack (green|yellow|amber|red)")

	fs.StringVar(&c.MotherToken, "mother-token", "", "bearer token for the mother's signal inputs")
	fs.StringVar(&c.FamilyToken, "family-token", "", "bearer token for the family alert view")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// the selected provider needs its key and model
	switch c.LLMProvider {
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required for LLM_PROVIDER claude"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required for LLM_PROVIDER claude"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for LLM_PROVIDER gemini"))
		}
		if c.GeminiModel == "" {
			errs = append(errs, errors.New("GEMINI_MODEL is required for LLM_PROVIDER gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be claude or gemini)", c.LLMProvider))
	}

	if c.LLMRequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("invalid LLM_REQUESTS_PER_MINUTE %d (must be >= 0)", c.LLMRequestsPerMinute))
	}
	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..600)", c.LLMTimeoutSeconds))
	}
	if c.PollIntervalSeconds <= 0 || c.PollIntervalSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid POLL_INTERVAL_SECONDS %d (must be 1..3600)", c.PollIntervalSeconds))
	}

	switch c.SlackMinLevel {
	case "green", "yellow", "amber", "red":
	default:
		errs = append(errs, fmt.Errorf("invalid SLACK_MIN_LEVEL %q (must be green, yellow, amber or red)", c.SlackMinLevel))
	}

	// both roles need a token, and they must not collide
	if c.MotherToken == "" {
		errs = append(errs, errors.New("MOTHER_TOKEN is required"))
	}
	if c.FamilyToken == "" {
		errs = append(errs, errors.New("FAMILY_TOKEN is required"))
	}
	if c.MotherToken != "" && c.MotherToken == c.FamilyToken {
		errs = append(errs, errors.New("MOTHER_TOKEN and FAMILY_TOKEN must differ"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
