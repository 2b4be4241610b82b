package config

import (
	"fmt"
	"strconv"
	"strings"
)

// OverlayEnv applies LEADDESK_* overrides on top of the file config.
// getenv is os.Getenv outside tests.
func OverlayEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("LEADDESK_BACKEND_URL", &cfg.Backend.BaseURL)
	str("LEADDESK_ROLE", &cfg.Auth.Role)
	str("LEADDESK_USER_ID", &cfg.Auth.UserID)
	str("LEADDESK_KEYRING_ACCOUNT", &cfg.Auth.KeyringAccount)
	str("LEADDESK_EXPORT_DIR", &cfg.Export.Dir)
	if v := strings.TrimSpace(getenv("LEADDESK_ALLOWED_ORIGINS")); v != "" {
		cfg.App.AllowedOrigins = strings.Split(v, ",")
	}

	for key, dst := range map[string]*int{
		"LEADDESK_PORT":            &cfg.App.Port,
		"LEADDESK_POLL_SECONDS":    &cfg.Polling.NewLeadsSeconds,
		"LEADDESK_EXPORT_MAX_ROWS": &cfg.Export.MaxRows,
		"LEADDESK_PAGE_SIZE":       &cfg.Listing.DefaultPageSize,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Resolve reads path the way the running engine sees it: file values on
// top of the defaults, then LEADDESK_* overrides, then normalization.
// Startup, hot reload and the config API all go through here.
func Resolve(path string, getenv func(string) string) (Config, Validation, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, Validation{}, fmt.Errorf("load %s: %w", path, err)
	}
	if err := OverlayEnv(&cfg, getenv); err != nil {
		return Config{}, Validation{}, fmt.Errorf("environment override: %w", err)
	}
	norm, vr := NormalizeAndValidate(cfg)
	return norm, vr, nil
}
