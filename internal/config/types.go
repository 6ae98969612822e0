// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package config holds the configuration surface read from the YAML file
// and PANTRY_ environment overrides.
package config

import "time"

// Config represents the root structure of the YAML configuration file.
// This struct is used to unmarshal configuration data from Viper.
type Config struct {
	API       API       `mapstructure:"api"       mask:"struct"`
	Crypto    Crypto    `mapstructure:"crypto"`
	Admission Admission `mapstructure:"admission"`
	Audit     Audit     `mapstructure:"audit"`
	Records   Records   `mapstructure:"records"`
	NATS      NATS      `mapstructure:"nats"      mask:"struct"`
	Postgres  Postgres  `mapstructure:"postgres"  mask:"struct"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// API configuration settings.
type API struct {
	Server Server `mapstructure:"server" mask:"struct"`
}

// Server configuration settings.
type Server struct {
	// Port the server will bind to.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For header is believed.
	// Empty means the client IP is always the connection's remote address.
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,cidr"`
	// ShutdownTimeout bounds how long in-flight requests get to finish on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	// Security contains secrets, token policy and CORS settings.
	Security ServerSecurity `mapstructure:"security" mask:"struct"`
}

// ServerSecurity represents security-related settings for the server.
type ServerSecurity struct {
	// CORS Cross-Origin Resource Sharing (CORS) settings for the server.
	CORS CORS `mapstructure:"cors"`
	// MasterSecret keys field encryption and blind indexes.
	MasterSecret string `mapstructure:"master_secret" validate:"required" mask:"password"`
	// SigningKey is the key used for signing or validating tokens.
	SigningKey string `mapstructure:"signing_key" validate:"required" mask:"password"`
	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	// TokenIssuer is written to the iss claim.
	TokenIssuer string `mapstructure:"token_issuer"`
	// PublicPaths skip token validation. Entries ending in "/*" match a prefix.
	PublicPaths []string `mapstructure:"public_paths"`
}

// CORS represents the CORS (Cross-Origin Resource Sharing) settings.
type CORS struct {
	// List of origins allowed to access the server (e.g., "foo").
	AllowOrigins []string `mapstructure:"allow_origins,omitempty"`
}

// Crypto holds key-derivation parameters.
type Crypto struct {
	// FieldIterations is the PBKDF2 round count for field encryption keys.
	FieldIterations int `mapstructure:"field_iterations" validate:"min=100000"`
	// PasswordIterations is the PBKDF2 round count for password hashes.
	PasswordIterations int `mapstructure:"password_iterations" validate:"min=100000"`
	// PasswordSaltBytes is the random salt length for password hashes.
	PasswordSaltBytes int `mapstructure:"password_salt_bytes" validate:"min=16"`
	// PasswordKeyBytes is the derived key length for password hashes.
	PasswordKeyBytes int `mapstructure:"password_key_bytes" validate:"min=32"`
}

// RateLimit is one window/ceiling pair.
type RateLimit struct {
	Requests int64         `mapstructure:"requests" validate:"min=1"`
	Window   time.Duration `mapstructure:"window"   validate:"gt=0"`
}

// RateLimits groups the policies per route class.
type RateLimits struct {
	General RateLimit `mapstructure:"general"`
	Auth    RateLimit `mapstructure:"auth"`
}

// Lockout configures brute-force protection on login paths.
type Lockout struct {
	Threshold int64         `mapstructure:"threshold" validate:"min=1"`
	Duration  time.Duration `mapstructure:"duration"  validate:"gt=0"`
	// Window bounds how long failures are remembered. Zero means Duration.
	Window time.Duration `mapstructure:"window" validate:"min=0"`
}

// Admission configures the request admission pipeline.
type Admission struct {
	RateLimits RateLimits `mapstructure:"rate_limits"`
	// AuthPaths are rate limited with the auth policy.
	AuthPaths []string `mapstructure:"auth_paths"`
	// LoginPaths are guarded by the lockout check.
	LoginPaths []string `mapstructure:"login_paths"`
	// IdentityField is the JSON body field naming the login identity.
	IdentityField string  `mapstructure:"identity_field" validate:"required"`
	Lockout       Lockout `mapstructure:"lockout"`
	// Store selects the counter store: "memory" or "nats".
	Store string `mapstructure:"store" validate:"oneof=memory nats"`
}

// Audit configures the audit recorder.
type Audit struct {
	// Backend selects the store: "memory", "nats" or "postgres".
	Backend string `mapstructure:"backend" validate:"oneof=memory nats postgres"`
	// ExcludePaths lists path prefixes that are not audited.
	ExcludePaths []string `mapstructure:"exclude_paths"`
	// MaxBodyBytes caps how much of a request body is fingerprinted.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=1"`
}

// Records configures the persistence interceptor.
type Records struct {
	// Backend selects the document store: "memory" or "nats".
	Backend string `mapstructure:"backend" validate:"oneof=memory nats"`
	// Sensitive maps a record type to the fields encrypted at rest.
	Sensitive map[string][]string `mapstructure:"sensitive"`
}

// NATS configuration settings.
type NATS struct {
	// URL of the NATS server the API connects to.
	URL string `mapstructure:"url"`
	// Namespace prefixes every bucket name.
	Namespace string      `mapstructure:"namespace"`
	Server    NATSServer  `mapstructure:"server,omitempty"`
	Buckets   NATSBuckets `mapstructure:"buckets"`
	// ClientName identifies this process to the server.
	ClientName string   `mapstructure:"client_name"`
	Auth       NATSAuth `mapstructure:"auth,omitempty" mask:"struct"`
}

// NATSAuth holds client-side authentication settings for connecting to NATS.
type NATSAuth struct {
	// Type is the auth method: "none", "user_pass", or "nkey".
	Type string `mapstructure:"type" validate:"omitempty,oneof=none user_pass nkey"`
	// Username for user_pass auth.
	Username string `mapstructure:"username" validate:"required_if=Type user_pass"`
	// Password for user_pass auth.
	Password string `mapstructure:"password" mask:"password"`
	// NKeyFile path to the NKey seed file for nkey auth.
	NKeyFile string `mapstructure:"nkey_file" validate:"required_if=Type nkey"`
}

// NATSServer configuration settings for the embedded NATS server.
type NATSServer struct {
	// Host the server will bind to.
	Host string `mapstructure:"host"`
	// Port the server will bind to.
	Port int `mapstructure:"port"`
	// StoreDir the directory for JetStream file storage.
	StoreDir string `mapstructure:"store_dir"`
}

// NATSBuckets names the KV buckets.
type NATSBuckets struct {
	Audit     string `mapstructure:"audit"`
	RateLimit string `mapstructure:"ratelimit"`
	Records   string `mapstructure:"records"`
	// Storage is "file" or "memory".
	Storage string `mapstructure:"storage" validate:"omitempty,oneof=file memory"`
}

// Postgres connection settings.
type Postgres struct {
	DSN string `mapstructure:"dsn" mask:"password"`
}

// Telemetry configuration settings.
type Telemetry struct {
	Tracing TracingConfig `mapstructure:"tracing,omitempty"`
	Metrics MetricsConfig `mapstructure:"metrics,omitempty"`
}

// MetricsConfig configuration settings for Prometheus metrics.
type MetricsConfig struct {
	// Enabled mounts the scrape endpoint.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the Prometheus scrape endpoint.
	// Defaults to "/metrics" when empty.
	Path string `mapstructure:"path"`
}

// TracingConfig configuration settings for distributed tracing.
type TracingConfig struct {
	// Enabled enables or disables tracing.
	Enabled bool `mapstructure:"enabled"`
	// Exporter selects the trace exporter: "stdout", "otlp" or empty for
	// log correlation only.
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=stdout otlp"`
	// OTLPEndpoint is the gRPC endpoint for the OTLP exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" validate:"required_if=Exporter otlp"`
}
