// Package config builds collector and reporter settings from built-in
// defaults, an optional YAML file, an optional .env file and the
// environment, in that order. A bad field never aborts startup: it keeps
// its default and a warning is returned for the caller to log.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadFile decodes the YAML file at path over dst. A missing file is not an
// error. Fields with the wrong type keep their current value.
func loadFile(path string, dst any) []string {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("config file %s: %v", path, err)}
	}
	if err := yaml.Unmarshal(b, dst); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			out := make([]string, 0, len(te.Errors))
			for _, e := range te.Errors {
				out = append(out, fmt.Sprintf("config file %s: %s (default kept)", path, e))
			}
			return out
		}
		return []string{fmt.Sprintf("config file %s: %v (defaults kept)", path, err)}
	}
	return nil
}

// loadDotEnv reads .env without overriding variables already set.
func loadDotEnv(path string) []string {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return []string{fmt.Sprintf("dotenv %s: %v", path, err)}
	}
	return nil
}

// env applies environment overrides and collects warnings.
type env struct {
	warnings []string
}

func (e *env) str(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (e *env) list(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitList(v)
	}
}

func (e *env) int(key string, dst *int, min int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		e.warnings = append(e.warnings, fmt.Sprintf("invalid %s=%q, keeping %d", key, v, *dst))
		return
	}
	*dst = n
}

func (e *env) float(key string, dst *float64) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		e.warnings = append(e.warnings, fmt.Sprintf("invalid %s=%q, keeping %g", key, v, *dst))
		return
	}
	*dst = f
}

func (e *env) bool(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.warnings = append(e.warnings, fmt.Sprintf("invalid %s=%q, keeping %t", key, v, *dst))
		return
	}
	*dst = b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// clampInt resets out-of-range values that came from the YAML file.
func clampInt(name string, v *int, min, def int, warn *[]string) {
	if *v < min {
		*warn = append(*warn, fmt.Sprintf("invalid %s=%d, using %d", name, *v, def))
		*v = def
	}
}

func clampFloat(name string, v *float64, def float64, warn *[]string) {
	if *v <= 0 {
		*warn = append(*warn, fmt.Sprintf("invalid %s=%g, using %g", name, *v, def))
		*v = def
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
