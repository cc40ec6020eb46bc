package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// SiteURL is the public URL this service is reachable at,
	// without a trailing slash. Used to build subscription links.
	SiteURL string `yaml:"site_url"`

	// DBPath is the path to the bbolt database holding credentials.
	DBPath string `yaml:"db_path"`

	// HolidayFeedURL is the JSON feed of public holidays and
	// compensatory workdays for the current year.
	HolidayFeedURL string `yaml:"holiday_feed_url"`

	// HolidayRefreshCron is a cron expression for re-fetching the
	// holiday feed (e.g. "0 4 * * *").
	HolidayRefreshCron string `yaml:"holiday_refresh"`
}

func Default() *Config {
	return &Config{
		Listen:             "127.0.0.1:8080",
		SiteURL:            "https://example.com",
		DBPath:             "./campuscal.db",
		HolidayFeedURL:     "https://www.shuyz.com/githubfiles/china-holiday-calender/master/holidayAPI.json",
		HolidayRefreshCron: "0 4 * * *",
	}
}

// Normalize fills missing values so older or partial config files keep working.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.SiteURL == "" {
		c.SiteURL = d.SiteURL
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.HolidayFeedURL == "" {
		c.HolidayFeedURL = d.HolidayFeedURL
	}
	if c.HolidayRefreshCron == "" {
		c.HolidayRefreshCron = d.HolidayRefreshCron
	}
}

// Load reads the YAML config at path. If the file does not exist, a default
// config is written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
