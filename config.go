package fantamarket

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the engine settings, read from the environment.
type Config struct {
	DBPath         string        `env:"FANTAMARKET_DB"                envDefault:"fantamarket.db"`
	DefaultCash    float64       `env:"FANTAMARKET_DEFAULT_CASH"      envDefault:"300"`
	FuzzyThreshold float64       `env:"FANTAMARKET_FUZZY_THRESHOLD"   envDefault:"0.6"`
	Scorer         string        `env:"FANTAMARKET_SCORER"            envDefault:"token"`
	League         string        `env:"FANTAMARKET_LEAGUE"`
	OpTimeout      time.Duration `env:"FANTAMARKET_OP_TIMEOUT"        envDefault:"5s"`
	LogLevel       string        `env:"FANTAMARKET_LOG_LEVEL"         envDefault:"warn"`
	LimitP         int           `env:"FANTAMARKET_LIMIT_P"           envDefault:"3"`
	LimitD         int           `env:"FANTAMARKET_LIMIT_D"           envDefault:"8"`
	LimitC         int           `env:"FANTAMARKET_LIMIT_C"           envDefault:"8"`
	LimitA         int           `env:"FANTAMARKET_LIMIT_A"           envDefault:"6"`
}

// DefaultConfig returns the configuration used when the environment sets nothing.
func DefaultConfig() Config {
	return Config{
		DBPath:         "fantamarket.db",
		DefaultCash:    300,
		FuzzyThreshold: 0.6,
		Scorer:         "token",
		OpTimeout:      5 * time.Second,
		LogLevel:       "warn",
		LimitP:         3,
		LimitD:         8,
		LimitC:         8,
		LimitA:         6,
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would break the engine invariants.
func (c Config) Validate() error {
	if c.DefaultCash < 0 {
		return fmt.Errorf("default cash must not be negative, got %v", c.DefaultCash)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be within [0,1], got %v", c.FuzzyThreshold)
	}
	for role, limit := range c.Limits() {
		if limit < 0 {
			return fmt.Errorf("roster limit for %s must not be negative, got %d", role, limit)
		}
	}
	if _, err := ParseScorer(c.Scorer); err != nil {
		return err
	}
	return nil
}

// Limits returns the configured roster limits.
func (c Config) Limits() RosterLimits {
	return RosterLimits{
		Goalkeeper: c.LimitP,
		Defender:   c.LimitD,
		Midfielder: c.LimitC,
		Forward:    c.LimitA,
	}
}

// DefaultCredits returns the cash given to a team with no ledger record.
func (c Config) DefaultCredits() Credits { return C(c.DefaultCash) }
