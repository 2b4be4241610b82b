package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// App configures the local listener. AllowedOrigins are the browser
// origins (scheme://host[:port]) that may call the API; requests with
// any other Origin header are refused.
type App struct {
	Port           int      `yaml:"port" json:"port"`
	DataDir        string   `yaml:"data_dir" json:"data_dir"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// DefaultAllowedOrigins are the webview origins of the desktop shell.
var DefaultAllowedOrigins = []string{"tauri://localhost", "http://tauri.localhost", "https://tauri.localhost"}

type Backend struct {
	BaseURL        string  `yaml:"base_url" json:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec" json:"rate_per_sec"`
	Burst          int     `yaml:"burst" json:"burst"`
	UserAgent      string  `yaml:"user_agent" json:"user_agent"`
}

// Auth identifies the signed-in user. The bearer token itself lives in the
// OS keychain under KeyringAccount, never in this file.
type Auth struct {
	KeyringAccount string `yaml:"keyring_account" json:"keyring_account"`
	Role           string `yaml:"role" json:"role"`
	UserID         string `yaml:"user_id" json:"user_id"`
}

type Polling struct {
	NewLeadsSeconds int `yaml:"new_leads_seconds" json:"new_leads_seconds"`
}

type Export struct {
	MaxRows int    `yaml:"max_rows" json:"max_rows"`
	Dir     string `yaml:"dir" json:"dir"`
}

type Listing struct {
	DefaultPageSize int `yaml:"default_page_size" json:"default_page_size"`
}

type Config struct {
	App     App     `yaml:"app" json:"app"`
	Backend Backend `yaml:"backend" json:"backend"`
	Auth    Auth    `yaml:"auth" json:"auth"`
	Polling Polling `yaml:"polling" json:"polling"`
	Export  Export  `yaml:"export" json:"export"`
	Listing Listing `yaml:"listing" json:"listing"`
}

func Default() Config {
	return Config{
		App:     App{Port: 38471, DataDir: ".", AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...)},
		Backend: Backend{BaseURL: "http://localhost:5000/api", TimeoutSeconds: 20, RatePerSec: 5, Burst: 5, UserAgent: "leaddesk-engine/1.0"},
		Auth:    Auth{KeyringAccount: "default", Role: "Agent"},
		Polling: Polling{NewLeadsSeconds: 30},
		Export:  Export{MaxRows: 100000, Dir: "exports"},
		Listing: Listing{DefaultPageSize: 10},
	}
}

// Load reads path on top of Default, so keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.NewLeadsSeconds) * time.Second
}

// ExportDir resolves export.dir against dataDir when relative.
func (c Config) ExportDir(dataDir string) string {
	d := c.Export.Dir
	if d == "" {
		d = "exports"
	}
	if filepath.IsAbs(d) {
		return d
	}
	return filepath.Join(dataDir, d)
}
