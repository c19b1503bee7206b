package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:                60,
		ShutdownBudgetSeconds:       90,
		APIPort:                     8080,
		SimilarityThreshold:         0.7,
		MinPostsForCampaign:         2,
		TimeWindowHours:             24,
		VelocityEscalationThreshold: 5.0,
		MonitoringAfterDays:         7,
		ResolvedAfterDays:           30,
		VocabularySize:              1000,
		DetectIntervalMinutes:       15,
		EscalationIntervalHours:     1,
		LifecycleIntervalHours:      24,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %g, want 0.7", c.SimilarityThreshold)
	}
	if c.MinPostsForCampaign != 2 {
		t.Errorf("MinPostsForCampaign = %d, want 2", c.MinPostsForCampaign)
	}
	if c.TimeWindowHours != 24 {
		t.Errorf("TimeWindowHours = %d, want 24", c.TimeWindowHours)
	}
	if c.VelocityEscalationThreshold != 5.0 {
		t.Errorf("VelocityEscalationThreshold = %g, want 5.0", c.VelocityEscalationThreshold)
	}
	if c.MonitoringAfterDays != 7 {
		t.Errorf("MonitoringAfterDays = %d, want 7", c.MonitoringAfterDays)
	}
	if c.ResolvedAfterDays != 30 {
		t.Errorf("ResolvedAfterDays = %d, want 30", c.ResolvedAfterDays)
	}
	if c.VocabularySize != 1000 {
		t.Errorf("VocabularySize = %d, want 1000", c.VocabularySize)
	}

	// Defaults must pass validation as-is.
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://sift:secret@db:5432/sift",
		"-slack-webhook-url", "https://hooks.slack.com/services/T/B/x",
		"-admin-token", "tok-123",
		"-similarity-threshold", "0.85",
		"-min-posts-for-campaign", "3",
		"-velocity-escalation-threshold", "8.5",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.DatabaseURL != "postgres://sift:secret@db:5432/sift" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.SlackWebhookURL != "https://hooks.slack.com/services/T/B/x" {
		t.Errorf("SlackWebhookURL = %q", c.SlackWebhookURL)
	}
	if c.AdminToken != "tok-123" {
		t.Errorf("AdminToken = %q, want tok-123", c.AdminToken)
	}
	if c.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %g, want 0.85", c.SimilarityThreshold)
	}
	if c.MinPostsForCampaign != 3 {
		t.Errorf("MinPostsForCampaign = %d, want 3", c.MinPostsForCampaign)
	}
	if c.VelocityEscalationThreshold != 8.5 {
		t.Errorf("VelocityEscalationThreshold = %g, want 8.5", c.VelocityEscalationThreshold)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "minimum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds = 1
				c.ShutdownBudgetSeconds = 2
				c.APIPort = 1
				c.SimilarityThreshold = 0.01
				c.TimeWindowHours = 1
				c.MonitoringAfterDays = 1
				c.ResolvedAfterDays = 2
				c.VocabularySize = 1
				c.DetectIntervalMinutes = 1
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			mutate: func(c *Config) {
				c.DrainSeconds = 299
				c.ShutdownBudgetSeconds = 300
				c.APIPort = 65535
				c.SimilarityThreshold = 1.0
			},
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			mutate:    func(c *Config) { c.DrainSeconds = -1 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name: "drain above max",
			mutate: func(c *Config) {
				c.DrainSeconds = 301
				c.ShutdownBudgetSeconds = 302
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 301 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 30 },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Engine parameters
		{
			name:      "similarity threshold zero",
			mutate:    func(c *Config) { c.SimilarityThreshold = 0 },
			wantErr:   true,
			errSubstr: []string{"SIMILARITY_THRESHOLD"},
		},
		{
			name:      "similarity threshold above one",
			mutate:    func(c *Config) { c.SimilarityThreshold = 1.01 },
			wantErr:   true,
			errSubstr: []string{"SIMILARITY_THRESHOLD"},
		},
		{
			name:      "min posts below two",
			mutate:    func(c *Config) { c.MinPostsForCampaign = 1 },
			wantErr:   true,
			errSubstr: []string{"MIN_POSTS_FOR_CAMPAIGN"},
		},
		{
			name:      "time window zero",
			mutate:    func(c *Config) { c.TimeWindowHours = 0 },
			wantErr:   true,
			errSubstr: []string{"TIME_WINDOW_HOURS"},
		},
		{
			name:      "velocity threshold zero",
			mutate:    func(c *Config) { c.VelocityEscalationThreshold = 0 },
			wantErr:   true,
			errSubstr: []string{"VELOCITY_ESCALATION_THRESHOLD"},
		},
		{
			name:      "monitoring days zero",
			mutate:    func(c *Config) { c.MonitoringAfterDays = 0 },
			wantErr:   true,
			errSubstr: []string{"MONITORING_AFTER_DAYS"},
		},
		{
			name:      "resolved not after monitoring",
			mutate:    func(c *Config) { c.ResolvedAfterDays = c.MonitoringAfterDays },
			wantErr:   true,
			errSubstr: []string{"RESOLVED_AFTER_DAYS"},
		},
		{
			name:      "vocabulary size zero",
			mutate:    func(c *Config) { c.VocabularySize = 0 },
			wantErr:   true,
			errSubstr: []string{"VOCABULARY_SIZE"},
		},
		// Cycle intervals
		{
			name:      "detect interval zero",
			mutate:    func(c *Config) { c.DetectIntervalMinutes = 0 },
			wantErr:   true,
			errSubstr: []string{"DETECT_INTERVAL_MINUTES"},
		},
		{
			name:      "escalation interval zero",
			mutate:    func(c *Config) { c.EscalationIntervalHours = 0 },
			wantErr:   true,
			errSubstr: []string{"ESCALATION_INTERVAL_HOURS"},
		},
		{
			name:      "lifecycle interval zero",
			mutate:    func(c *Config) { c.LifecycleIntervalHours = 0 },
			wantErr:   true,
			errSubstr: []string{"LIFECYCLE_INTERVAL_HOURS"},
		},
		// Error accumulation
		{
			name: "multiple fields invalid",
			mutate: func(c *Config) {
				c.DrainSeconds = 0
				c.ShutdownBudgetSeconds = 0
				c.APIPort = 0
				c.SimilarityThreshold = -1
				c.MinPostsForCampaign = 0
			},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT",
				"SIMILARITY_THRESHOLD", "MIN_POSTS_FOR_CAMPAIGN",
			},
		},
		// Extreme values
		{
			name: "extreme negative values",
			mutate: func(c *Config) {
				c.DrainSeconds = math.MinInt32
				c.ShutdownBudgetSeconds = math.MinInt32
				c.APIPort = math.MinInt32
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validBase()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port int
		threshold           float64
		minPosts, window    int
	}{
		{60, 90, 8080, 0.7, 2, 24},
		{1, 2, 1, 0.01, 2, 1},
		{299, 300, 65535, 1.0, 2, 24},
		{0, 0, 0, 0, 0, 0},
		{-1, -1, -1, -1, -1, -1},
		{300, 300, 65535, 0.7, 2, 24},
		{301, 302, 65536, 1.5, 1, 0},
		{150, 100, 8080, 0.7, 2, 24},
		{math.MinInt32, math.MinInt32, math.MinInt32, -0.5, math.MinInt32, math.MinInt32},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, 2.0, math.MaxInt32, math.MaxInt32},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.threshold, s.minPosts, s.window)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port int, threshold float64, minPosts, window int) {
		c := validBase()
		c.DrainSeconds = drain
		c.ShutdownBudgetSeconds = budget
		c.APIPort = port
		c.SimilarityThreshold = threshold
		c.MinPostsForCampaign = minPosts
		c.TimeWindowHours = window

		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		thresholdOK := threshold > 0 && threshold <= 1 && !math.IsNaN(threshold)
		minPostsOK := minPosts >= 2
		windowOK := window >= 1

		allValid := drainOK && budgetOK && portOK && crossOK && thresholdOK && minPostsOK && windowOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
