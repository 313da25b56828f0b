package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/engine"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"MATH_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"MATH_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MATH_LOG_FORMAT" envDefault:"json"`
	AllowedOrigins  []string      `env:"MATH_ALLOWED_ORIGINS" envSeparator:","`
	Problems        int           `env:"MATH_PROBLEMS" envDefault:"10"`
	RoundSeconds    int           `env:"MATH_ROUND_SECONDS" envDefault:"30"`
	FeedbackDelay   time.Duration `env:"MATH_FEEDBACK_DELAY" envDefault:"500ms"`
	MinOperand      int           `env:"MATH_MIN_OPERAND" envDefault:"1"`
	MaxOperand      int           `env:"MATH_MAX_OPERAND" envDefault:"100"`
	ShutdownTimeout time.Duration `env:"MATH_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

var (
	ErrNonPositive   = errors.New("must be positive")
	ErrOperandRange  = errors.New("min operand exceeds max operand")
	ErrUnknownFormat = errors.New("log format must be json or console")
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	positive := []struct {
		name string
		v    int64
	}{
		{"MATH_PROBLEMS", int64(c.Problems)},
		{"MATH_ROUND_SECONDS", int64(c.RoundSeconds)},
		{"MATH_FEEDBACK_DELAY", int64(c.FeedbackDelay)},
		{"MATH_SHUTDOWN_TIMEOUT", int64(c.ShutdownTimeout)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%s: %w", p.name, ErrNonPositive)
		}
	}
	if c.MinOperand > c.MaxOperand {
		return fmt.Errorf("MATH_MIN_OPERAND=%d MATH_MAX_OPERAND=%d: %w", c.MinOperand, c.MaxOperand, ErrOperandRange)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("MATH_LOG_FORMAT=%q: %w", c.LogFormat, ErrUnknownFormat)
	}
	return nil
}

func (c Config) Rules() engine.Rules {
	return engine.Rules{
		Problems:     c.Problems,
		RoundSeconds: c.RoundSeconds,
		MinOperand:   c.MinOperand,
		MaxOperand:   c.MaxOperand,
	}
}
