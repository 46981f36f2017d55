package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Protocol-Lattice/diet-agent/pkg/diet"
	"github.com/Protocol-Lattice/diet-agent/pkg/logging"
)

// Tracing modes.
const (
	TracingOff  = "off"
	TracingLog  = "log"
	TracingOTel = "otel"
	TracingBoth = "both"
)

type Search struct {
	APIKey    string        `yaml:"api_key"`
	EngineID  string        `yaml:"engine_id"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Credentials are read from the environment only.
type Credentials struct {
	GeminiAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	OllamaHost      string `yaml:"-"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	AppName         string        `yaml:"app_name"`
	InstructionDir  string        `yaml:"instruction_dir"`
	StateDSN        string        `yaml:"state_dsn"`
	Models          diet.ModelIDs `yaml:"models"`
	Search          Search        `yaml:"search"`
	Tracing         string        `yaml:"tracing"`
	LogLevel        string        `yaml:"log_level"`
	NoColor         bool          `yaml:"no_color"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Credentials     Credentials   `yaml:"-"`
}

func DefaultServer() Server {
	return Server{
		Addr:            ":8000",
		AppName:         "my-diet-assistant",
		Models:          diet.DefaultModelIDs(),
		Search:          Search{CacheSize: 128, CacheTTL: 10 * time.Minute},
		Tracing:         TracingLog,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadServer resolves server settings from args (without the program
// name) and env.
func LoadServer(args []string, env Env) (Server, error) {
	cfg := DefaultServer()

	fs := flag.NewFlagSet("dietagent", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to a YAML config file (env DIET_CONFIG)")
		addr       = fs.String("addr", "", "listen address (env DIET_ADDR)")
		appName    = fs.String("app", "", "application name sessions are scoped to (env DIET_APP_NAME)")
		instrDir   = fs.String("instructions", "", "directory overriding the embedded instruction templates")
		dsn        = fs.String("dsn", "", "Postgres DSN for session state; empty keeps sessions in memory")
		tracing    = fs.String("tracing", "", "telemetry sink: off, log, otel or both")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		runTimeout = fs.Duration("run-timeout", 0, "bound on a single /run call; 0 disables")
	)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	path := *configPath
	if path == "" {
		path = env.first("DIET_CONFIG")
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}

	env.setString(&cfg.Addr, "DIET_ADDR")
	env.setString(&cfg.AppName, "DIET_APP_NAME")
	env.setString(&cfg.InstructionDir, "DIET_INSTRUCTION_DIR")
	env.setString(&cfg.StateDSN, "DIET_STATE_DSN", "DATABASE_URL")
	env.setString(&cfg.Search.EngineID, "GOOGLE_CSE_ID")
	env.setString(&cfg.Search.APIKey, "GOOGLE_CSE_API_KEY", "GOOGLE_API_KEY")
	env.setString(&cfg.Tracing, "DIET_TRACING")
	env.setString(&cfg.LogLevel, "DIET_LOG_LEVEL")
	env.setBool(&cfg.NoColor, "NO_COLOR")
	if err := env.setDuration(&cfg.RunTimeout, "DIET_RUN_TIMEOUT"); err != nil {
		return cfg, err
	}
	env.setString(&cfg.Credentials.GeminiAPIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	env.setString(&cfg.Credentials.OpenAIAPIKey, "OPENAI_API_KEY")
	env.setString(&cfg.Credentials.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	env.setString(&cfg.Credentials.OllamaHost, "OLLAMA_HOST")

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "app":
			cfg.AppName = *appName
		case "instructions":
			cfg.InstructionDir = *instrDir
		case "dsn":
			cfg.StateDSN = *dsn
		case "tracing":
			cfg.Tracing = *tracing
		case "log-level":
			cfg.LogLevel = *logLevel
		case "run-timeout":
			cfg.RunTimeout = *runTimeout
		}
	})

	return cfg, cfg.Validate()
}

func (c Server) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if strings.TrimSpace(c.AppName) == "" {
		errs = append(errs, errors.New("app name is required"))
	}
	switch c.Tracing {
	case TracingOff, TracingLog, TracingOTel, TracingBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown tracing mode %q", c.Tracing))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RunTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
