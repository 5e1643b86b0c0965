package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dreams/internal/config"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", "worker", &buf)
	logger.Debug("hello")
	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "component=worker") {
		t.Fatalf("log output = %q", out)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DREAMS_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DREAMS_TEST_KEY", "")
	os.Unsetenv("DREAMS_TEST_KEY")

	LoadEnvFile(path)
	if got := os.Getenv("DREAMS_TEST_KEY"); got != "from-file" {
		t.Fatalf("DREAMS_TEST_KEY = %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := LoadConfig(nil)
	if err != nil || cfg.Port != "9090" {
		t.Fatalf("LoadConfig = %+v, %v", cfg, err)
	}

	boom := errors.New("invalid")
	if _, err := LoadConfig(func(*config.Config) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
