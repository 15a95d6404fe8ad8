package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineSim || cfg.Language != "en-US" || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SPEECH_LANGUAGE", "fr-FR")
	t.Setenv("SPEECH_TIMEOUT", "5s")
	t.Setenv("SPEECH_WASM_MEMORY_PAGES", "32")
	t.Setenv("SPEECH_LOG_DEV", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "fr-FR" || cfg.Timeout != 5*time.Second || cfg.MemoryPages != 32 || !cfg.LogDev {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SPEECH_VOICE=nova\nSPEECH_SESSION_ID=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Registered so the values loaded from the file are cleared afterwards.
	t.Setenv("SPEECH_VOICE", "")
	t.Setenv("SPEECH_SESSION_ID", "")
	os.Unsetenv("SPEECH_VOICE")
	os.Unsetenv("SPEECH_SESSION_ID")

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Voice != "nova" || cfg.SessionID != "file" {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown engine", map[string]string{"SPEECH_ENGINE": "cloud"}},
		{"wasm without module", map[string]string{"SPEECH_ENGINE": "wasm"}},
		{"bad level", map[string]string{"SPEECH_LOG_LEVEL": "loud"}},
		{"bad duration", map[string]string{"SPEECH_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			var e *errors.Error
			if !errors.As(err, &e) || e.Phase != errors.PhaseConfig {
				t.Fatalf("Load = %v, want config error", err)
			}
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	cfg := Defaults()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse([]string{"-engine", "wasm", "-wasm", "engine.wasm", "-timeout", "2s"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Engine != EngineWasm || cfg.WasmModule != "engine.wasm" || cfg.Timeout != 2*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLogger(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "debug"
	cfg.LogDev = true
	l, err := cfg.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug level not enabled")
	}
}
