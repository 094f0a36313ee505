package attendmark

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration. Every tunable has a working
// default; a YAML file only needs the values it wants to change.
type Config struct {
	Portal   PortalConfig  `yaml:"portal"`
	Browser  BrowserConfig `yaml:"browser"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Scroll   ScrollConfig  `yaml:"scroll"`
	Pauses   PauseConfig   `yaml:"pauses"`
	Audit    AuditConfig   `yaml:"audit"`
}

// PortalConfig holds the portal entry points.
type PortalConfig struct {
	HomeURL  string `yaml:"home_url"`
	BaseURL  string `yaml:"base_url"`
	LoginURL string `yaml:"login_url"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	ProfileDir string `yaml:"profile_dir"`
	// Headless hides the browser window. Off by default: the SSO login
	// needs a human at the keyboard.
	Headless bool `yaml:"headless"`
}

// TimeoutConfig bounds every wait in the run.
type TimeoutConfig struct {
	Login       time.Duration `yaml:"login"`
	PanelReady  time.Duration `yaml:"panel_ready"`
	EventSettle time.Duration `yaml:"event_settle"`
	EventSearch time.Duration `yaml:"event_search"`
	PerStudent  time.Duration `yaml:"per_student"`
	Modal       time.Duration `yaml:"modal"`

	// ShortFind bounds opportunistic lookups like the More Details link,
	// which may legitimately be absent.
	ShortFind time.Duration `yaml:"short_find"`
}

// ScrollConfig tunes the incremental scroll searches.
type ScrollConfig struct {
	StepFraction float64       `yaml:"step_fraction"`
	Pause        time.Duration `yaml:"pause"`
	TableTries   int           `yaml:"table_tries"`
	TablePause   time.Duration `yaml:"table_pause"`
}

// PauseConfig holds the fixed settle pauses between actions.
type PauseConfig struct {
	AfterDateClick time.Duration `yaml:"after_date_click"`
	Attempt        time.Duration `yaml:"attempt"`
}

// AuditConfig enables the local run-audit database when Path is set.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("attendmark: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Portal.HomeURL == "" {
		c.Portal.HomeURL = "https://maheslcmtech.lightning.force.com/lightning/page/home"
	}
	if c.Portal.BaseURL == "" {
		c.Portal.BaseURL = "https://maheslcmtech.lightning.force.com"
	}
	if c.Portal.LoginURL == "" {
		c.Portal.LoginURL = "https://maheslcm.manipal.edu/login"
	}
	if c.Timeouts.Login <= 0 {
		c.Timeouts.Login = 60 * time.Second
	}
	if c.Timeouts.PanelReady <= 0 {
		c.Timeouts.PanelReady = 30 * time.Second
	}
	if c.Timeouts.EventSettle <= 0 {
		c.Timeouts.EventSettle = 25 * time.Second
	}
	if c.Timeouts.EventSearch <= 0 {
		c.Timeouts.EventSearch = 45 * time.Second
	}
	if c.Timeouts.PerStudent <= 0 {
		c.Timeouts.PerStudent = 5 * time.Second
	}
	if c.Timeouts.Modal <= 0 {
		c.Timeouts.Modal = 20 * time.Second
	}
	if c.Timeouts.ShortFind <= 0 {
		c.Timeouts.ShortFind = 2 * time.Second
	}
	if c.Scroll.StepFraction <= 0 {
		c.Scroll.StepFraction = 0.6
	}
	if c.Scroll.Pause <= 0 {
		c.Scroll.Pause = 300 * time.Millisecond
	}
	if c.Scroll.TableTries <= 0 {
		c.Scroll.TableTries = 6
	}
	if c.Scroll.TablePause <= 0 {
		c.Scroll.TablePause = 200 * time.Millisecond
	}
	if c.Pauses.AfterDateClick <= 0 {
		c.Pauses.AfterDateClick = time.Second
	}
	if c.Pauses.Attempt <= 0 {
		c.Pauses.Attempt = 100 * time.Millisecond
	}
}
