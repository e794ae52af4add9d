// Package config centralizes runtime configuration for gridlink. It loads a
// YAML configuration file, fills in defaults for anything left unset, and
// finally applies GRIDLINK_* environment overrides. A missing file is not
// an error; development builds simply run on defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"gridlink.unit/gridlink/internal/identity"
)

// EnvPrefix is the prefix for environment overrides, e.g. GRIDLINK_NAME.
const EnvPrefix = "GRIDLINK"

// DefaultFile is read when no path is given on the command line.
const DefaultFile = "gridlink.yaml"

// Config holds configurable options for the gridlink daemon and CLI.
type Config struct {
	Name           string        `yaml:"name" split_words:"true"`
	Endpoint       string        `yaml:"endpoint" split_words:"true"`
	KeyFile        string        `yaml:"key_file" split_words:"true"`
	IdentityForm   string        `yaml:"identity_form" split_words:"true"`
	Listen         string        `yaml:"listen" split_words:"true"`
	JournalFile    string        `yaml:"journal_file" split_words:"true"`
	ReportInterval time.Duration `yaml:"report_interval" split_words:"true"`
	ReportBatch    int           `yaml:"report_batch" split_words:"true"`
	AutoEnroll     bool          `yaml:"auto_enroll" split_words:"true"`
	LogLevel       string        `yaml:"log_level" split_words:"true"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Name:           "unit",
		Endpoint:       "https://api.pwnagotchi.ai/api/v1",
		KeyFile:        "gridlink_key.pem",
		IdentityForm:   "pem",
		Listen:         "127.0.0.1:8666",
		JournalFile:    "gridlink.db",
		ReportInterval: 5 * time.Minute,
		ReportBatch:    50,
		AutoEnroll:     true,
		LogLevel:       "info",
	}
}

// Load reads the YAML file at path, merges defaults for zero-value fields
// and applies environment overrides. An empty path or a missing file
// yields defaults; a file that cannot be parsed is an error.
func Load(path string) (*Config, error) {
	c := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	c.mergeDefaults(Defaults())

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// mergeDefaults restores defaults for fields the file set to a zero value.
func (c *Config) mergeDefaults(def *Config) {
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if c.IdentityForm == "" {
		c.IdentityForm = def.IdentityForm
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.JournalFile == "" {
		c.JournalFile = def.JournalFile
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = def.ReportInterval
	}
	if c.ReportBatch == 0 {
		c.ReportBatch = def.ReportBatch
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("config: name must not be empty")
	}
	if strings.Contains(c.Name, "@") {
		return fmt.Errorf("config: name %q must not contain '@'", c.Name)
	}
	if _, err := identity.ParseTextForm(c.IdentityForm); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ReportBatch <= 0 {
		return fmt.Errorf("config: report_batch must be positive, got %d", c.ReportBatch)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("config: report_interval must be positive, got %s", c.ReportInterval)
	}
	return nil
}

// TextForm returns the parsed identity form. Call Validate first.
func (c *Config) TextForm() identity.TextForm {
	f, _ := identity.ParseTextForm(c.IdentityForm)
	return f
}
