package cfg

import (
	"errors"
	"flag"
	"fmt"
	"math"
)

// Config adds sift-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	SlackWebhookURL       string
	AdminToken            string

	SimilarityThreshold         float64
	MinPostsForCampaign         int
	TimeWindowHours             int
	VelocityEscalationThreshold float64
	MonitoringAfterDays         int
	ResolvedAfterDays           int
	VocabularySize              int

	DetectIntervalMinutes   int
	EscalationIntervalHours int
	LifecycleIntervalHours  int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for escalation notifications")
	fs.StringVar(&c.AdminToken, "admin-token", "", "bearer token guarding the admin endpoints (empty = unguarded, dev only)")

	fs.Float64Var(&c.SimilarityThreshold, "similarity-threshold", 0.7, "cosine similarity required to group items into a campaign (0..1)")
	fs.IntVar(&c.MinPostsForCampaign, "min-posts-for-campaign", 2, "minimum similar items required to form a campaign (>= 2)")
	fs.IntVar(&c.TimeWindowHours, "time-window-hours", 24, "detection and escalation lookback window in hours (>= 1)")
	fs.Float64Var(&c.VelocityEscalationThreshold, "velocity-escalation-threshold", 5.0, "posts per hour above which an active campaign escalates (> 0)")
	fs.IntVar(&c.MonitoringAfterDays, "monitoring-after-days", 7, "days of inactivity before an active campaign moves to monitoring (>= 1)")
	fs.IntVar(&c.ResolvedAfterDays, "resolved-after-days", 30, "days of inactivity before a campaign resolves (> monitoring-after-days)")
	fs.IntVar(&c.VocabularySize, "vocabulary-size", 1000, "maximum TF-IDF vocabulary size (>= 1)")

	fs.IntVar(&c.DetectIntervalMinutes, "detect-interval-minutes", 15, "minutes between detection cycles (>= 1)")
	fs.IntVar(&c.EscalationIntervalHours, "escalation-interval-hours", 1, "hours between escalation checks (>= 1)")
	fs.IntVar(&c.LifecycleIntervalHours, "lifecycle-interval-hours", 24, "hours between lifecycle sweeps (>= 1)")
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

	if math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid SIMILARITY_THRESHOLD %g (must be in (0..1])", c.SimilarityThreshold))
	}
	if c.MinPostsForCampaign < 2 {
		errs = append(errs, fmt.Errorf("invalid MIN_POSTS_FOR_CAMPAIGN %d (must be >= 2)", c.MinPostsForCampaign))
	}
	if c.TimeWindowHours < 1 {
		errs = append(errs, fmt.Errorf("invalid TIME_WINDOW_HOURS %d (must be >= 1)", c.TimeWindowHours))
	}
	if c.VelocityEscalationThreshold <= 0 {
		errs = append(errs, fmt.Errorf("invalid VELOCITY_ESCALATION_THRESHOLD %g (must be > 0)", c.VelocityEscalationThreshold))
	}
	if c.MonitoringAfterDays < 1 {
		errs = append(errs, fmt.Errorf("invalid MONITORING_AFTER_DAYS %d (must be >= 1)", c.MonitoringAfterDays))
	}
	if c.ResolvedAfterDays <= c.MonitoringAfterDays {
		errs = append(errs, fmt.Errorf("RESOLVED_AFTER_DAYS %d must be greater than MONITORING_AFTER_DAYS %d", c.ResolvedAfterDays, c.MonitoringAfterDays))
	}
	if c.VocabularySize < 1 {
		errs = append(errs, fmt.Errorf("invalid VOCABULARY_SIZE %d (must be >= 1)", c.VocabularySize))
	}

	if c.DetectIntervalMinutes < 1 {
		errs = append(errs, fmt.Errorf("invalid DETECT_INTERVAL_MINUTES %d (must be >= 1)", c.DetectIntervalMinutes))
	}
	if c.EscalationIntervalHours < 1 {
		errs = append(errs, fmt.Errorf("invalid ESCALATION_INTERVAL_HOURS %d (must be >= 1)", c.EscalationIntervalHours))
	}
	if c.LifecycleIntervalHours < 1 {
		errs = append(errs, fmt.Errorf("invalid LIFECYCLE_INTERVAL_HOURS %d (must be >= 1)", c.LifecycleIntervalHours))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
