package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	goRecovery "github.com/MrEthical07/goRecovery"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recovery.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
api:
  base_url: http://file.local
  request_timeout: 3s
policy:
  min_length: 8
locale: fr
`)
	t.Setenv("RECOVERY_API__BASE_URL", "http://env.local")
	t.Setenv("RECOVERY_AUDIT__ENABLED", "true")

	cfg := goRecovery.DefaultConfig()
	if err := Load(path, "RECOVERY_", &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "http://env.local" {
		t.Fatalf("expected env to override file, got %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout != 3*time.Second {
		t.Fatalf("expected duration decode, got %v", cfg.API.RequestTimeout)
	}
	if cfg.Policy.MinLength != 8 || cfg.Locale != goRecovery.LocaleFrench || !cfg.Audit.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.API.VerifyPath != "/api/forgot-password/verify" {
		t.Fatalf("expected untouched default, got %q", cfg.API.VerifyPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := goRecovery.DefaultConfig()
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "", &cfg); err == nil {
		t.Fatal("expected missing file to fail")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("STUBTEST_ADDR", ":9999")
	var out struct {
		Addr string `mapstructure:"addr"`
	}
	if err := Load("", "STUBTEST_", &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Addr != ":9999" {
		t.Fatalf("expected env value, got %q", out.Addr)
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, level := NewLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	level.SetLevel(zapcore.DebugLevel)
	logger.Debug("now visible")
	_ = logger.Sync()
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("expected atomic level change to take effect")
	}
}

func TestMapLogLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"bogus": zapcore.ErrorLevel,
		"":      zapcore.ErrorLevel,
	}
	for in, want := range cases {
		if got := MapLogLevel(in); got != want {
			t.Fatalf("MapLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
