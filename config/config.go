// Package config loads settings for the speech runtime command and examples
// from defaults, an optional .env file, SPEECH_* environment variables and
// command-line flags, in that order of precedence.
package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/speech-runtime/errors"
)

// Engine kinds accepted by Config.Engine.
const (
	EngineSim  = "sim"
	EngineWasm = "wasm"
)

// Config holds runtime settings.
type Config struct {
	Engine      string        `env:"SPEECH_ENGINE"`            // sim|wasm
	WasmModule  string        `env:"SPEECH_WASM_MODULE"`       // guest module path for the wasm engine
	Language    string        `env:"SPEECH_LANGUAGE"`
	Voice       string        `env:"SPEECH_VOICE"`
	SessionID   string        `env:"SPEECH_SESSION_ID"`
	LogLevel    string        `env:"SPEECH_LOG_LEVEL"`         // debug|info|warn|error
	Timeout     time.Duration `env:"SPEECH_TIMEOUT"`           // await bound for one operation
	StepDelay   time.Duration `env:"SPEECH_SIM_STEP_DELAY"`
	MemoryPages uint32        `env:"SPEECH_WASM_MEMORY_PAGES"` // 0 keeps the wazero default
	LogDev      bool          `env:"SPEECH_LOG_DEV"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Engine:    EngineSim,
		Language:  "en-US",
		Voice:     "default",
		SessionID: "run",
		LogLevel:  "info",
		Timeout:   30 * time.Second,
		StepDelay: 20 * time.Millisecond,
	}
}

// Load builds a Config from defaults, the given .env files and the process
// environment. Missing .env files are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load "+f)
		}
	}

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse environment")
	}
	return cfg, cfg.Validate()
}

// RegisterFlags binds flags that override cfg on fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Engine, "engine", c.Engine, "engine to use: sim|wasm")
	fs.StringVar(&c.WasmModule, "wasm", c.WasmModule, "guest module for the wasm engine")
	fs.StringVar(&c.Language, "language", c.Language, "recognition language")
	fs.StringVar(&c.Voice, "voice", c.Voice, "synthesis voice")
	fs.StringVar(&c.SessionID, "session-id", c.SessionID, "session id prefix")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	fs.BoolVar(&c.LogDev, "log-dev", c.LogDev, "human-readable development logging")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "how long to wait for one operation")
	fs.DurationVar(&c.StepDelay, "step-delay", c.StepDelay, "delay between simulated engine events")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Engine) {
	case EngineSim:
	case EngineWasm:
		if c.WasmModule == "" {
			return errors.InvalidInput(errors.PhaseConfig, "wasm engine requires SPEECH_WASM_MODULE or -wasm")
		}
	default:
		return errors.InvalidInput(errors.PhaseConfig, "unknown engine "+c.Engine)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	if c.Timeout < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "timeout must not be negative")
	}
	return nil
}

// Logger builds a zap logger for the configured level and mode.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
