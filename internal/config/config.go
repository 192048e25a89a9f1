// Package config resolves photo-critic settings.
//
// Precedence, lowest first: built-in defaults, the YAML config file
// (~/.photo-critic/config.yaml unless --config is given), .env files in the
// working directory, then environment variables. Command flags are applied by
// the caller on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fpang/photo-critic/internal/critique"
)

// DirName is the per-user directory holding config, credentials and logs.
const DirName = ".photo-critic"

// Default model IDs. See internal/gemini for the full list.
const (
	DefaultModel      = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-3-pro-image-preview"
)

const defaultConfigYAML = `# photo-critic configuration
# Environment variables override every value in this file.

# Model used for critiques (GEMINI_MODEL).
model: gemini-3-flash-preview

# Model used to apply edits (GEMINI_IMAGE_MODEL).
image_model: gemini-3-pro-image-preview

# Critique shape: "detailed" (edits with reasons and a projected rating) or "plain".
variant: detailed

# Per-request timeout for Gemini calls (PHOTO_CRITIC_TIMEOUT).
timeout: 2m

# debug, info, warn or error (GEMINI_LOG_LEVEL).
log_level: info

# Listen address for "photo-critic serve" (PHOTO_CRITIC_ADDR).
addr: 127.0.0.1:8080
`

// Config holds resolved settings.
type Config struct {
	APIKey      string        `yaml:"api_key,omitempty"`
	Model       string        `yaml:"model"`
	ImageModel  string        `yaml:"image_model"`
	Variant     string        `yaml:"variant"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file,omitempty"`
	Addr        string        `yaml:"addr"`
	MaxUploadMB int           `yaml:"max_upload_mb,omitempty"`

	// Path is the config file that was read, empty if none.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:       DefaultModel,
		ImageModel:  DefaultImageModel,
		Variant:     string(critique.VariantDetailed),
		Timeout:     2 * time.Minute,
		LogLevel:    "info",
		Addr:        "127.0.0.1:8080",
		MaxUploadMB: 20,
	}
}

// Dir returns ~/.photo-critic.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.photo-critic/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load resolves the configuration. An explicit path must exist; the default
// path is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := loadDotEnv(".env", ".env.local"); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads the given .env files in order, later files overriding
// earlier ones, and exports each value whose variable is unset or empty.
// Missing files are skipped.
func loadDotEnv(files ...string) error {
	merged := make(map[string]string)
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", f, err)
		}
		maps.Copy(merged, vals)
	}
	for k, v := range merged {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Path = path
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setString("GEMINI_API_KEY", &c.APIKey)
	setString("GEMINI_MODEL", &c.Model)
	setString("GEMINI_IMAGE_MODEL", &c.ImageModel)
	setString("GEMINI_LOG_LEVEL", &c.LogLevel)
	setString("PHOTO_CRITIC_VARIANT", &c.Variant)
	setString("PHOTO_CRITIC_ADDR", &c.Addr)
	setString("PHOTO_CRITIC_LOG_FILE", &c.LogFile)

	if v := os.Getenv("PHOTO_CRITIC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PHOTO_CRITIC_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("PHOTO_CRITIC_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PHOTO_CRITIC_MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.ImageModel == "" {
		return errors.New("image_model must not be empty")
	}
	if _, err := critique.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// CritiqueVariant returns the parsed critique variant. Validate guarantees it parses.
func (c *Config) CritiqueVariant() critique.Variant {
	v, _ := critique.ParseVariant(c.Variant)
	return v
}

// WriteDefault creates the default config file at path unless it already exists.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
