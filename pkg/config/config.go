// Package config resolves settings for the server and chat binaries.
// Precedence, lowest first: defaults, YAML file, .env file, process
// environment, command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env looks up a configuration variable. Empty means unset.
type Env func(key string) string

// Environ layers the process environment over the given .env files. Files
// that do not exist are skipped; earlier files win over later ones.
func Environ(dotenvPaths ...string) (Env, error) {
	merged := map[string]string{}
	for i := len(dotenvPaths) - 1; i >= 0; i-- {
		values, err := godotenv.Read(dotenvPaths[i])
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", dotenvPaths[i], err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return merged[key]
	}, nil
}

// MapEnv is an Env backed by a map. Intended for tests.
func MapEnv(m map[string]string) Env {
	return func(key string) string { return m[key] }
}

// first returns the first non-empty value among keys.
func (e Env) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e(k)); v != "" {
			return v
		}
	}
	return ""
}

func (e Env) setString(dst *string, keys ...string) {
	if v := e.first(keys...); v != "" {
		*dst = v
	}
}

func (e Env) setDuration(dst *time.Duration, key string) error {
	v := e.first(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func (e Env) setBool(dst *bool, key string) {
	if e.first(key) != "" {
		*dst = true
	}
}

// readYAML decodes path into v. An empty path is a no-op.
func readYAML(path string, v any) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}
