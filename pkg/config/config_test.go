package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer(nil, MapEnv(nil))
	if err != nil {
		t.Fatalf("LoadServer returned error: %v", err)
	}
	if cfg.Addr != ":8000" || cfg.AppName != "my-diet-assistant" || cfg.Tracing != TracingLog {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Models.Search != "gemini-2.0-flash-exp" {
		t.Fatalf("unexpected default search model %q", cfg.Models.Search)
	}
}

func TestLoadServerPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "diet.yaml", `
addr: ":9000"
app_name: yaml-app
tracing: otel
models:
  formatter: openai:gpt-4o-mini
search:
  engine_id: yaml-cx
  cache_ttl: 30s
`)
	env := MapEnv(map[string]string{
		"DIET_CONFIG":    path,
		"DIET_APP_NAME":  "env-app",
		"GEMINI_API_KEY": "g-key",
		"GOOGLE_CSE_ID":  "env-cx",
	})

	cfg, err := LoadServer([]string{"-addr", ":7000"}, env)
	if err != nil {
		t.Fatalf("LoadServer returned error: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("flag should win over yaml, got %q", cfg.Addr)
	}
	if cfg.AppName != "env-app" {
		t.Fatalf("env should win over yaml, got %q", cfg.AppName)
	}
	if cfg.Tracing != TracingOTel || cfg.Search.CacheTTL != 30*time.Second {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Search.EngineID != "env-cx" {
		t.Fatalf("expected env engine id, got %q", cfg.Search.EngineID)
	}
	if cfg.Models.Formatter != "openai:gpt-4o-mini" || cfg.Models.Root != "gemini-2.0-flash-001" {
		t.Fatalf("expected yaml model override merged with defaults: %+v", cfg.Models)
	}
	if cfg.Credentials.GeminiAPIKey != "g-key" {
		t.Fatalf("expected gemini key from env")
	}
}

func TestLoadServerValidation(t *testing.T) {
	if _, err := LoadServer([]string{"-tracing", "loud"}, MapEnv(nil)); err == nil {
		t.Fatalf("expected error for unknown tracing mode")
	}
	if _, err := LoadServer(nil, MapEnv(map[string]string{"DIET_LOG_LEVEL": "chatty"})); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
	if _, err := LoadServer(nil, MapEnv(map[string]string{"DIET_RUN_TIMEOUT": "soon"})); err == nil {
		t.Fatalf("expected error for bad duration")
	}
	if _, err := LoadServer(nil, MapEnv(map[string]string{"DIET_CONFIG": "/does/not/exist.yaml"})); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvironReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, ".env.local", "DIET_TEST_ONLY_KEY=local\n")
	shared := writeFile(t, dir, ".env", "DIET_TEST_ONLY_KEY=shared\nDIET_TEST_ONLY_OTHER=x\n")

	env, err := Environ(local, shared, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Environ returned error: %v", err)
	}
	if env("DIET_TEST_ONLY_KEY") != "local" || env("DIET_TEST_ONLY_OTHER") != "x" {
		t.Fatalf("unexpected dotenv values")
	}

	t.Setenv("DIET_TEST_ONLY_KEY", "process")
	if env("DIET_TEST_ONLY_KEY") != "process" {
		t.Fatalf("process environment should win over .env")
	}
}

func TestLoadClient(t *testing.T) {
	cfg, err := LoadClient(nil, MapEnv(map[string]string{"USER": "ada"}))
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8000" || cfg.AppName != "my-diet-assistant" || cfg.Timeout != 600*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.UserEmail != "ada@localhost" || cfg.UserName != "ada" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}

	cfg, err = LoadClient([]string{"-api", "https://diet.example.com/", "-email", "grace@example.com", "-timeout", "5s"}, MapEnv(nil))
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if cfg.BaseURL != "https://diet.example.com" || cfg.UserName != "grace" || cfg.Timeout != 5*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}

	if _, err := LoadClient([]string{"-api", "localhost:8000"}, MapEnv(nil)); err == nil || !strings.Contains(err.Error(), "base URL") {
		t.Fatalf("expected invalid URL error, got %v", err)
	}
}
