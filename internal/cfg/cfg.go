package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds application-specific configuration parsed from flags and
// MEDIC_-prefixed environment variables.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	ClaudeAPIKey          string
	ClaudeModel           string
	ClaudeTimeoutSeconds  int
	DatabaseURL           string
	SlackWebhookURL       string
	EmbeddingEndpoint     string
	EmbeddingModel        string
	ReportsDir            string
	MinSignalKeys         int
	MaxUserTurns          int
	FallbackSeverity      string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = auth disabled)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.ClaudeTimeoutSeconds, "claude-timeout-seconds", 60, "HTTP timeout for Claude requests (1..300)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory stores)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for severity alerts")
	fs.StringVar(&c.EmbeddingEndpoint, "embedding-endpoint", "", "Ollama-compatible embedding endpoint (empty = similarity search disabled)")
	fs.StringVar(&c.EmbeddingModel, "embedding-model", "embeddinggemma", "embedding model name")
	fs.StringVar(&c.ReportsDir, "reports-dir", "reports", "directory for exported incident reports (empty = export disabled)")
	fs.IntVar(&c.MinSignalKeys, "min-signal-keys", 4, "distinct signals that force the diagnosis stage (2..8)")
	fs.IntVar(&c.MaxUserTurns, "max-user-turns", 3, "user turns that force the diagnosis stage (1..50)")
	fs.StringVar(&c.FallbackSeverity, "fallback-severity", "MEDIUM", "severity assigned when a diagnosis cannot be decoded")
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

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.ClaudeTimeoutSeconds <= 0 || c.ClaudeTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_TIMEOUT_SECONDS %d (must be 1..300)", c.ClaudeTimeoutSeconds))
	}

	// Policy knobs bound what the engine will tolerate mid-conversation.
	if c.MinSignalKeys < 2 || c.MinSignalKeys > 8 {
		errs = append(errs, fmt.Errorf("invalid MIN_SIGNAL_KEYS %d (must be 2..8)", c.MinSignalKeys))
	}
	if c.MaxUserTurns < 1 || c.MaxUserTurns > 50 {
		errs = append(errs, fmt.Errorf("invalid MAX_USER_TURNS %d (must be 1..50)", c.MaxUserTurns))
	}

	switch c.FallbackSeverity {
	case "CRITICAL", "HIGH", "MEDIUM", "LOW":
	default:
		errs = append(errs, fmt.Errorf("invalid FALLBACK_SEVERITY %q (must be CRITICAL, HIGH, MEDIUM or LOW)", c.FallbackSeverity))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
