package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL   string        `yaml:"base_url"`
	AppName   string        `yaml:"app_name"`
	UserEmail string        `yaml:"user_email"`
	UserName  string        `yaml:"user_name"`
	Timeout   time.Duration `yaml:"timeout"`
	LogLevel  string        `yaml:"log_level"`
	NoColor   bool          `yaml:"no_color"`
}

func DefaultClient() Client {
	return Client{
		BaseURL:  "http://localhost:8000",
		AppName:  "my-diet-assistant",
		Timeout:  600 * time.Second,
		LogLevel: "warn",
	}
}

// LoadClient resolves chat client settings from args (without the program
// name) and env.
func LoadClient(args []string, env Env) (Client, error) {
	cfg := DefaultClient()

	fs := flag.NewFlagSet("dietchat", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to a YAML config file (env DIET_CHAT_CONFIG)")
		baseURL    = fs.String("api", "", "agent API base URL (env DIET_API_URL)")
		appName    = fs.String("app", "", "application name (env DIET_APP_NAME)")
		email      = fs.String("email", "", "your email, used to scope sessions (env DIET_USER_EMAIL)")
		name       = fs.String("name", "", "display name for the welcome banner (env DIET_USER_NAME)")
		timeout    = fs.Duration("timeout", 0, "per-request timeout")
	)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	path := *configPath
	if path == "" {
		path = env.first("DIET_CHAT_CONFIG")
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}

	env.setString(&cfg.BaseURL, "DIET_API_URL")
	env.setString(&cfg.AppName, "DIET_APP_NAME")
	env.setString(&cfg.UserEmail, "DIET_USER_EMAIL")
	env.setString(&cfg.UserName, "DIET_USER_NAME")
	env.setString(&cfg.LogLevel, "DIET_LOG_LEVEL")
	env.setBool(&cfg.NoColor, "NO_COLOR")
	if err := env.setDuration(&cfg.Timeout, "DIET_REQUEST_TIMEOUT"); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api":
			cfg.BaseURL = *baseURL
		case "app":
			cfg.AppName = *appName
		case "email":
			cfg.UserEmail = *email
		case "name":
			cfg.UserName = *name
		case "timeout":
			cfg.Timeout = *timeout
		}
	})

	if cfg.UserEmail == "" {
		user := env.first("USER", "USERNAME")
		if user == "" {
			user = "guest"
		}
		cfg.UserEmail = user + "@localhost"
	}
	if cfg.UserName == "" {
		cfg.UserName = strings.SplitN(cfg.UserEmail, "@", 2)[0]
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, cfg.Validate()
}

func (c Client) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: invalid API base URL %q", c.BaseURL)
	}
	if strings.TrimSpace(c.AppName) == "" {
		return errors.New("config: app name is required")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}
