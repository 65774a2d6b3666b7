package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds            int
	ShutdownBudgetSeconds   int
	APIPort                 int
	DatabaseURL             string
	AMQPURL                 string
	AnthropicAPIKey         string
	AnthropicModel          string
	JWTSecret               string
	ProofDir                string
	ProofBaseURL            string
	WorkerConcurrency       int
	SummarizeTimeoutSeconds int
	ReprocessSchedule       string
	SlackWebhookURL         string
	CASWrites               bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.AMQPURL, "amqp-url", "", "RabbitMQ connection URL (empty = in-process event bus)")
	fs.StringVar(&c.AnthropicAPIKey, "anthropic-api-key", "", "API key for the Anthropic LLM provider (empty = no AI summaries)")
	fs.StringVar(&c.AnthropicModel, "anthropic-model", "claude-sonnet-4-20250514", "Anthropic model to use")
	fs.StringVar(&c.JWTSecret, "jwt-secret", "", "HMAC secret for verifying bearer tokens")
	fs.StringVar(&c.ProofDir, "proof-dir", "./proofs", "directory where resolution proof files are stored")
	fs.StringVar(&c.ProofBaseURL, "proof-base-url", "/proofs", "base URL under which stored proofs are served")
	fs.IntVar(&c.WorkerConcurrency, "worker-concurrency", 4, "number of concurrent analysis workers (1..64)")
	fs.IntVar(&c.SummarizeTimeoutSeconds, "summarize-timeout-seconds", 30, "per-attempt timeout for AI summarization (1..300)")
	fs.StringVar(&c.ReprocessSchedule, "reprocess-schedule", "", "cron schedule for re-queuing failed complaints (empty = disabled)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for critical complaint notifications")
	fs.BoolVar(&c.CASWrites, "cas-writes", false, "use compare-and-swap writes against the record store")
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

	// Every authenticated request goes through token verification
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	// The summarizer is optional, but a key without a model is a misconfig
	if c.AnthropicAPIKey != "" && c.AnthropicModel == "" {
		errs = append(errs, errors.New("ANTHROPIC_MODEL is required when ANTHROPIC_API_KEY is set"))
	}

	if c.ProofDir == "" {
		errs = append(errs, errors.New("PROOF_DIR is required"))
	}

	if c.WorkerConcurrency <= 0 || c.WorkerConcurrency > 64 {
		errs = append(errs, fmt.Errorf("invalid WORKER_CONCURRENCY %d (must be 1..64)", c.WorkerConcurrency))
	}

	if c.SummarizeTimeoutSeconds <= 0 || c.SummarizeTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SUMMARIZE_TIMEOUT_SECONDS %d (must be 1..300)", c.SummarizeTimeoutSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
