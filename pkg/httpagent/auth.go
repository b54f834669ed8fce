package httpagent

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// ApplyAuth injects authentication headers onto req per spec.md §4.2.
func ApplyAuth(req *http.Request, cfg AuthConfig) {
	switch cfg.Type {
	case AuthBearer:
		if cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.Token)
		}
	case AuthAPIKey:
		header := cfg.Header
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, cfg.Key)
	case AuthBasic:
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.User + ":" + cfg.Pass))
		req.Header.Set("Authorization", "Basic "+creds)
	case AuthCustom:
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}
	}
}

// ParseSetAuthValue interprets the set_auth step's target/value pair per
// spec.md §4.2: "target is the auth type; value is 'header:key' for apikey
// or 'user:pass' for basic, else the token."
func ParseSetAuthValue(target, value string) AuthConfig {
	authType := AuthType(strings.ToLower(target))
	switch authType {
	case AuthAPIKey:
		header, key, ok := strings.Cut(value, ":")
		if !ok {
			return AuthConfig{Type: AuthAPIKey, Header: "X-API-Key", Key: value}
		}
		return AuthConfig{Type: AuthAPIKey, Header: header, Key: key}
	case AuthBasic:
		user, pass, _ := strings.Cut(value, ":")
		return AuthConfig{Type: AuthBasic, User: user, Pass: pass}
	case AuthCustom:
		return AuthConfig{Type: AuthCustom, Headers: map[string]string{"Authorization": value}}
	default:
		return AuthConfig{Type: AuthBearer, Token: value}
	}
}
