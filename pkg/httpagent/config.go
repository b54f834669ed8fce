// Package httpagent implements the HTTP Request Subsystem (spec.md §4.2):
// request dispatch with retry, auth injection, response validation, and
// request/response history — and the API Agent that exposes it as a
// scenario-step action vocabulary.
package httpagent

// AuthType names the supported authentication schemes (spec.md §4.2).
type AuthType string

// Auth variants.
const (
	AuthNone   AuthType = ""
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apikey"
	AuthBasic  AuthType = "basic"
	AuthCustom AuthType = "custom"
)

// AuthConfig configures authentication header injection.
type AuthConfig struct {
	Type AuthType

	// Bearer
	Token string

	// APIKey
	Key    string
	Header string // defaults to X-API-Key

	// Basic
	User string
	Pass string

	// Custom
	Headers map[string]string
}

// RetryConfig configures the retry algorithm from spec.md §4.2.
type RetryConfig struct {
	MaxRetries         int
	RetryDelayMs       int
	RetryOnStatus      map[int]bool
	ExponentialBackoff bool
	MaxBackoffDelayMs  int
}

// ValidationConfig enables JSON Schema validation.
type ValidationConfig struct {
	Enabled bool
}

// PerformanceThresholds configures performance-warning thresholds.
type PerformanceThresholds struct {
	MaxResponseTimeMs int
	MaxDNSTimeMs      int
	MaxConnectTimeMs  int
}

// PerformanceConfig configures request-timing capture.
type PerformanceConfig struct {
	Enabled    bool
	Thresholds PerformanceThresholds
}

// LoggingConfig configures request/response logging, including header
// masking.
type LoggingConfig struct {
	LogRequests      bool
	LogResponses     bool
	LogHeaders       bool
	MaskSensitiveData bool
	SensitiveHeaders map[string]bool
}

// DefaultSensitiveHeaders is the default set masked when MaskSensitiveData
// is enabled, matching spec.md §4.2 exactly.
func DefaultSensitiveHeaders() map[string]bool {
	return map[string]bool{
		"authorization": true,
		"x-api-key":     true,
		"cookie":        true,
	}
}

// Config is the full HTTP Request Subsystem configuration.
type Config struct {
	BaseURL        string
	TimeoutMs      int
	DefaultHeaders map[string]string
	Auth           AuthConfig
	Retry          RetryConfig
	Validation     ValidationConfig
	Performance    PerformanceConfig
	Logging        LoggingConfig
}

// DefaultConfig returns a Config with the spec's implied defaults: no
// retries, linear backoff, no validation, no performance thresholds, and
// the default sensitive-header set (always populated so masking behaves
// correctly even if a caller only sets MaskSensitiveData).
func DefaultConfig() Config {
	return Config{
		TimeoutMs:      30_000,
		DefaultHeaders: map[string]string{},
		Retry: RetryConfig{
			MaxRetries:        0,
			RetryDelayMs:      1000,
			RetryOnStatus:     map[int]bool{},
			MaxBackoffDelayMs: 30_000,
		},
		Logging: LoggingConfig{
			SensitiveHeaders: DefaultSensitiveHeaders(),
		},
	}
}
