package config

import (
	"fmt"
	"net/url"
	"strings"

	"leaddesk-engine/internal/domain"
	"leaddesk-engine/internal/leads"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg plus everything
// wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(out.Backend.BaseURL), "/")
	out.Auth.UserID = strings.TrimSpace(out.Auth.UserID)
	out.Auth.KeyringAccount = strings.TrimSpace(out.Auth.KeyringAccount)
	if strings.TrimSpace(out.Auth.Role) != "" {
		out.Auth.Role = string(domain.ParseRole(out.Auth.Role))
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	out.App.AllowedOrigins = nil
	for _, o := range cfg.App.AllowedOrigins {
		o = NormalizeOrigin(o)
		switch {
		case o == "":
			continue
		case o == "*":
			res.addErr("app.allowed_origins must list origins; \"*\" is not accepted")
		case !validOrigin(o):
			res.addErr("app.allowed_origins entry %q must look like scheme://host[:port]", o)
		}
		out.App.AllowedOrigins = append(out.App.AllowedOrigins, o)
	}
	if len(out.App.AllowedOrigins) == 0 {
		res.addWarn("app.allowed_origins is empty; browser requests to the API are all refused.")
	}

	// backend
	if out.Backend.BaseURL == "" {
		res.addErr("backend.base_url is required")
	} else if u, err := url.Parse(out.Backend.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.addErr("backend.base_url must be an http(s) URL, got %q", out.Backend.BaseURL)
	} else if u.Scheme == "http" && !isLocalHost(u.Hostname()) {
		res.addWarn("backend.base_url uses plain http to a remote host; the bearer token is sent unencrypted.")
	}
	if out.Backend.TimeoutSeconds <= 0 {
		res.addErr("backend.timeout_seconds must be > 0")
	} else if out.Backend.TimeoutSeconds > 120 {
		res.addWarn("backend.timeout_seconds is very high (%d); a stuck backend will hold exports that long.", out.Backend.TimeoutSeconds)
	}
	if out.Backend.RatePerSec < 0 {
		res.addErr("backend.rate_per_sec must be >= 0 (0 disables limiting)")
	}
	if out.Backend.Burst < 0 {
		res.addErr("backend.burst must be >= 0")
	}

	// auth
	if out.Auth.KeyringAccount == "" {
		res.addErr("auth.keyring_account is required")
	}
	if strings.TrimSpace(cfg.Auth.Role) == "" {
		res.addWarn("auth.role is empty; treating the user as Agent.")
		out.Auth.Role = string(domain.RoleAgent)
	} else if !knownRole(cfg.Auth.Role) {
		res.addWarn("auth.role %q is not recognised; treating the user as Agent.", cfg.Auth.Role)
	}
	if domain.ParseRole(out.Auth.Role).IsAgent() && out.Auth.UserID == "" {
		res.addWarn("auth.user_id is empty; agent listings are scoped by the backend only.")
	}

	// polling
	if out.Polling.NewLeadsSeconds <= 0 {
		res.addErr("polling.new_leads_seconds must be > 0")
	} else if out.Polling.NewLeadsSeconds < 10 {
		res.addWarn("polling.new_leads_seconds is very low (%d) and may cause rate limits.", out.Polling.NewLeadsSeconds)
	}

	// export
	if out.Export.MaxRows <= 0 {
		res.addErr("export.max_rows must be > 0")
	} else if out.Export.MaxRows > 1_000_000 {
		res.addWarn("export.max_rows is %d; the backend may time out building one page that large.", out.Export.MaxRows)
	}

	// listing
	if !leads.ValidPageSize(out.Listing.DefaultPageSize) {
		res.addErr("listing.default_page_size must be one of %v", leads.PageSizes)
	}

	return out, res
}

// NormalizeOrigin lowercases o and drops a trailing slash so it compares
// equal to what browsers send in the Origin header.
func NormalizeOrigin(o string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
}

func validOrigin(o string) bool {
	u, err := url.Parse(o)
	return err == nil && u.Scheme != "" && u.Host != "" && u.Path == "" && u.RawQuery == ""
}

func knownRole(s string) bool {
	r := domain.ParseRole(s)
	if r != domain.RoleAgent {
		return true
	}
	norm := strings.ToLower(strings.TrimSpace(s))
	return norm == "agent"
}

func isLocalHost(h string) bool {
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
