// Package config provides configuration parsing for the sweep runner.
//
// Configuration comes from command-line flags with environment-variable
// fallbacks; flags win. The credential token is normally supplied through
// COLDATOM_TOKEN rather than the command line.
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/synqs/coldatom/pkg/tls"
)

// Config holds all sweep runner configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	TLS           tls.Config

	ProviderURL    string
	Username       string
	Token          string
	Backend        string
	RequestTimeout time.Duration

	Run         string
	Sequence    string
	Shots       int
	SweepStart  float64
	SweepStop   float64
	SweepPoints int

	Atoms  int
	AtomsB int
	Lambda float64
	Chi    float64

	PollInterval time.Duration
	JobTimeout   time.Duration

	PlotFile string
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Call Validate before using it.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address for the status API")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "Redis run record TTL")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable mTLS for the provider client and status server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file")

	flag.StringVar(&cfg.ProviderURL, "provider-url", getEnv("PROVIDER_URL", ""), "Provider API root, e.g. https://qlued.example.org/api/v2 (required)")
	flag.StringVar(&cfg.Username, "username", getEnv("COLDATOM_USERNAME", ""), "Provider account username (required)")
	flag.StringVar(&cfg.Token, "token", getEnv("COLDATOM_TOKEN", ""), "Provider account token (required, prefer COLDATOM_TOKEN)")
	flag.StringVar(&cfg.Backend, "backend", getEnv("BACKEND", "multiqudit"), "Backend name")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", getEnvDuration("REQUEST_TIMEOUT", 30*time.Second), "Per-request timeout for provider calls")

	flag.StringVar(&cfg.Run, "run", getEnv("RUN", ""), "Run name (default: generated)")
	flag.StringVar(&cfg.Sequence, "sequence", getEnv("SEQUENCE", "rabi"), "Sweep sequence: rabi or gauge")
	flag.IntVar(&cfg.Shots, "shots", getEnvInt("SHOTS", 500), "Shots per sweep point")
	flag.Float64Var(&cfg.SweepStart, "sweep-start", getEnvFloat("SWEEP_START", 0), "First sweep value")
	flag.Float64Var(&cfg.SweepStop, "sweep-stop", getEnvFloat("SWEEP_STOP", 3.141592653589793), "Last sweep value")
	flag.IntVar(&cfg.SweepPoints, "sweep-points", getEnvInt("SWEEP_POINTS", 25), "Number of sweep points")

	flag.IntVar(&cfg.Atoms, "atoms", getEnvInt("ATOMS", 50), "Atom number on the first wire")
	flag.IntVar(&cfg.AtomsB, "atoms-b", getEnvInt("ATOMS_B", 20), "Atom number on the second wire (gauge sequence)")
	flag.Float64Var(&cfg.Lambda, "lambda", getEnvFloat("LAMBDA", 0.1), "Lz-Lz coupling strength per unit time (gauge sequence)")
	flag.Float64Var(&cfg.Chi, "chi", getEnvFloat("CHI", 1.0), "Spin-changing-collision strength per unit time (gauge sequence)")

	flag.DurationVar(&cfg.PollInterval, "poll-interval", getEnvDuration("POLL_INTERVAL", 2*time.Second), "Job status poll interval")
	flag.DurationVar(&cfg.JobTimeout, "job-timeout", getEnvDuration("JOB_TIMEOUT", 5*time.Minute), "Per-job wait timeout")

	flag.StringVar(&cfg.PlotFile, "plot-file", getEnv("PLOT_FILE", ""), "Figure output path (.png/.svg/.pdf); empty disables plotting")

	flag.Parse()

	if cfg.Run == "" {
		cfg.Run = "sweep-" + uuid.NewString()[:8]
	}

	return cfg
}

var runNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.ProviderURL == "" {
		return fmt.Errorf("provider URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.Backend == "" {
		return fmt.Errorf("backend name is required")
	}
	if !runNameRegex.MatchString(c.Run) {
		return fmt.Errorf("invalid run name %q (must be alphanumeric with dash/underscore, 1-253 chars)", c.Run)
	}
	if c.Sequence != "rabi" && c.Sequence != "gauge" {
		return fmt.Errorf("invalid sequence %q (must be rabi or gauge)", c.Sequence)
	}
	if c.Shots <= 0 {
		return fmt.Errorf("shots must be > 0")
	}
	if c.SweepPoints <= 0 {
		return fmt.Errorf("sweep-points must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be > 0")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("job-timeout must be > 0")
	}
	if c.JobTimeout < c.PollInterval {
		return fmt.Errorf("job-timeout (%v) cannot be shorter than poll-interval (%v)", c.JobTimeout, c.PollInterval)
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
