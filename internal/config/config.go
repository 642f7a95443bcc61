package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the photoacoustic analyzer
// core. Precedence: CLI flags > env vars > YAML document > defaults.
//
// The flat fields below are the ambient settings a human operator tunes
// per-deployment (listen address, data directory, log format); everything
// domain-specific (graph topology, thermal regulator fleet, OAuth clients
// and users, action-driver credentials) lives in the embedded Document,
// loaded from a YAML file since it is too structured for flags or env vars.
type Config struct {
	Document

	DataDir      string
	HTTPPort     int
	TLSCert      string // decoded from Document.Visualization.CertBase64
	TLSKey       string // decoded from Document.Visualization.KeyBase64
	RedirectPort int    // plain-HTTP port that 301s to the TLS listener; 0 disables it
	CORSOrigins  string
	LogLevel     string
	LogFormat    string

	// TuneRegulatorID, when set, selects the one-shot tuning mode: instead
	// of starting the daemon, compute PID gains for the named thermal
	// regulator from a step-response test and print them.
	TuneRegulatorID string
	TuneMethod      string // "ziegler-nichols" or "cohen-coon"

	// HashPassword, when set, selects the one-shot password-hashing mode:
	// print an Argon2id hash for the given plaintext (for populating the
	// oauth.users.pass_base64 field of the configuration document) and exit.
	HashPassword string
}

// defaults
const (
	defaultDataDir        = "./data"
	defaultHTTPPort       = 8080
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultAccessTokenTTL = time.Hour
)

// envPrefix is the prefix for all environment variables this core reads.
const envPrefix = "PHOTOACOUSTIC_"

// Load parses configuration from a YAML document plus CLI flag/env
// overrides. Precedence: CLI flags > env vars > YAML document > defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:   defaultDataDir,
		HTTPPort:  defaultHTTPPort,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}

	var configPath string
	fs := flag.NewFlagSet("photoacoustic-core", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to the YAML configuration document")
	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for captured frames and persistent stores")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port (visualization + API)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.CORSOrigins, "cors-origins", "", "comma-separated list of allowed CORS origins (use * for all)")
	fs.IntVar(&cfg.RedirectPort, "https-redirect-port", 0, "plain-HTTP port that redirects to the HTTPS listener (only used when TLS is configured; 0 disables it)")
	fs.StringVar(&cfg.TuneRegulatorID, "tune", "", "compute PID gains for the named thermal regulator from its step-response test and exit")
	fs.StringVar(&cfg.TuneMethod, "tune-method", "cohen-coon", "tuning rule to apply: ziegler-nichols or cohen-coon")
	fs.StringVar(&cfg.HashPassword, "hash-password", "", "print an argon2id hash for the given plaintext password and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["config"] {
		if v, ok := os.LookupEnv(envPrefix + "CONFIG"); ok {
			configPath = v
		}
	}

	if configPath != "" {
		if err := cfg.loadDocument(configPath); err != nil {
			return nil, fmt.Errorf("loading config document %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(set, cfg)

	if cfg.Visualization.Port != 0 && !set["http-port"] {
		if _, ok := os.LookupEnv(envPrefix + "HTTP_PORT"); !ok {
			cfg.HTTPPort = cfg.Visualization.Port
		}
	}
	if cfg.Visualization.CORSOrigins != "" && cfg.CORSOrigins == "" {
		cfg.CORSOrigins = cfg.Visualization.CORSOrigins
	}

	if err := cfg.decodeBase64Fields(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDocument reads and unmarshals the YAML configuration document.
func (c *Config) loadDocument(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	c.Document = doc
	return nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line.
func applyEnvOverrides(set map[string]bool, cfg *Config) {
	envMap := map[string]string{
		"data-dir":     envPrefix + "DATA_DIR",
		"http-port":    envPrefix + "HTTP_PORT",
		"log-level":    envPrefix + "LOG_LEVEL",
		"log-format":   envPrefix + "LOG_FORMAT",
		"cors-origins": envPrefix + "CORS_ORIGINS",
	}
	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "cors-origins":
			cfg.CORSOrigins = val
		}
	}
}

// decodeBase64Fields decodes the base64-encoded PEM/hash material the
// document carries into their plaintext forms on Config.
func (c *Config) decodeBase64Fields() error {
	if c.Visualization.CertBase64 != "" {
		cert, err := base64.StdEncoding.DecodeString(c.Visualization.CertBase64)
		if err != nil {
			return fmt.Errorf("visualization cert_base64: %w", err)
		}
		c.TLSCert = string(cert)
	}
	if c.Visualization.KeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(c.Visualization.KeyBase64)
		if err != nil {
			return fmt.Errorf("visualization key_base64: %w", err)
		}
		c.TLSKey = string(key)
	}
	return nil
}

// validate checks that the config values are sane, per spec §6's
// configuration validation checklist.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65534 {
		return fmt.Errorf("http-port must be between 1 and 65534, got %d", c.HTTPPort)
	}
	if c.RedirectPort != 0 {
		if c.RedirectPort < 1 || c.RedirectPort > 65534 {
			return fmt.Errorf("https-redirect-port must be between 1 and 65534, got %d", c.RedirectPort)
		}
		if c.RedirectPort == c.HTTPPort {
			return fmt.Errorf("https-redirect-port must differ from http-port, got %d for both", c.RedirectPort)
		}
	}
	if c.Visualization.Address != "" {
		if err := validateListenAddress(c.Visualization.Address); err != nil {
			return fmt.Errorf("visualization address: %w", err)
		}
	}
	if c.Modbus.Port != 0 && (c.Modbus.Port < 1 || c.Modbus.Port > 65534) {
		return fmt.Errorf("modbus port must be between 1 and 65534, got %d", c.Modbus.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	// Visualization cert+key pairing: both or neither, both base64-decodable
	// (decodeBase64Fields already proved decodability before we get here).
	if (c.Visualization.CertBase64 == "") != (c.Visualization.KeyBase64 == "") {
		return fmt.Errorf("visualization cert_base64 and key_base64 must both be provided or both be omitted")
	}

	if err := c.validateOAuth(); err != nil {
		return err
	}
	if err := c.validateThermalRegulators(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}

	return nil
}

// validateAcquisition checks that the configured source kind is one this
// core knows how to construct (spec §4.2: device, file, mock, simulated).
func (c *Config) validateAcquisition() error {
	switch c.Document.Acquisition.Kind {
	case "", "mock", "simulated", "file", "device":
		return nil
	default:
		return fmt.Errorf("acquisition kind must be one of mock, simulated, file, device; got %q", c.Document.Acquisition.Kind)
	}
}

// validateListenAddress enforces spec §6's "address parses as IP or equals
// localhost, 0.0.0.0, ::, ::0" rule.
func validateListenAddress(addr string) error {
	switch addr {
	case "localhost", "0.0.0.0", "::", "::0":
		return nil
	}
	if net.ParseIP(addr) == nil {
		return fmt.Errorf("%q is not a valid IP address or recognized alias", addr)
	}
	return nil
}

// validateOAuth checks RS256 key pairing and base64-decodability, the user
// directory's crypt hash prefixes, and the permission separator rule.
func (c *Config) validateOAuth() error {
	o := c.Document.OAuth

	if (o.RS256PrivateBase64 == "") != (o.RS256PublicBase64 == "") {
		return fmt.Errorf("oauth rs256_private_key_base64 and rs256_public_key_base64 must both be provided or both be omitted")
	}
	if o.RS256PrivateBase64 != "" {
		if _, err := base64.StdEncoding.DecodeString(o.RS256PrivateBase64); err != nil {
			return fmt.Errorf("oauth rs256_private_key_base64: %w", err)
		}
		if _, err := base64.StdEncoding.DecodeString(o.RS256PublicBase64); err != nil {
			return fmt.Errorf("oauth rs256_public_key_base64: %w", err)
		}
	}

	validPrefixes := []string{"$1$", "$5$", "$6$", "$apr1$"}
	for _, u := range o.Users {
		decoded, err := base64.StdEncoding.DecodeString(u.PassBase64)
		if err != nil {
			return fmt.Errorf("user %q pass_base64: %w", u.Username, err)
		}
		hash := string(decoded)
		ok := false
		for _, p := range validPrefixes {
			if strings.HasPrefix(hash, p) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("user %q password hash does not start with a recognized crypt prefix ($1$, $5$, $6$, $apr1$)", u.Username)
		}
		if err := validatePermissions(u.Permissions); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
	}
	return nil
}

// userSessionSeparator mirrors internal/oauth.ValidatePermission's reserved
// character; duplicated here (rather than imported) because config must not
// depend on internal/oauth, which itself may eventually depend on config.
const userSessionSeparator = ''

func validatePermissions(permissions []string) error {
	for _, p := range permissions {
		if strings.ContainsRune(p, userSessionSeparator) {
			return fmt.Errorf("permission %q contains the reserved separator character", p)
		}
	}
	return nil
}

// validateThermalRegulators evaluates each regulator's conversion formula
// at the three mandated test voltages.
func (c *Config) validateThermalRegulators() error {
	for _, reg := range c.Document.Thermal {
		if reg.ConversionFormula == "" {
			continue
		}
		if err := validateFormula(reg.ConversionFormula); err != nil {
			return fmt.Errorf("thermal regulator %q: %w", reg.ID, err)
		}
	}
	return nil
}

// TLSEnabled returns true if visualization TLS certificates are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != ""
}

// OAuthHMACSecretBytes returns the decoded HMAC signing secret for the
// issuer. If none is configured, a random 32-byte key is generated and
// held for the process lifetime (tokens will not survive a restart).
func (c *Config) OAuthHMACSecretBytes() ([]byte, error) {
	if c.Document.OAuth.HMACSecretBase64 == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating oauth hmac secret: %w", err)
		}
		c.Document.OAuth.HMACSecretBase64 = base64.StdEncoding.EncodeToString(key)
		slog.Warn("no oauth hmac secret configured, generated ephemeral key (tokens will not survive restart)")
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Document.OAuth.HMACSecretBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding oauth hmac secret: %w", err)
	}
	return key, nil
}

// RS256KeyPair decodes and parses the configured RS256 signing key pair.
// It returns (nil, nil, nil) if no RS256 material is configured, leaving the
// issuer to sign with HMAC only.
func (c *Config) RS256KeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	o := c.Document.OAuth
	if o.RS256PrivateBase64 == "" {
		return nil, nil, nil
	}

	privPEM, err := base64.StdEncoding.DecodeString(o.RS256PrivateBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding rs256 private key: %w", err)
	}
	pubPEM, err := base64.StdEncoding.DecodeString(o.RS256PublicBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding rs256 public key: %w", err)
	}

	privBlock, _ := pem.Decode(privPEM)
	if privBlock == nil {
		return nil, nil, fmt.Errorf("rs256 private key: not valid PEM")
	}
	priv, err := x509.ParsePKCS1PrivateKey(privBlock.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(privBlock.Bytes)
		if err2 != nil {
			return nil, nil, fmt.Errorf("rs256 private key: %w", err)
		}
		rsaPriv, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, nil, fmt.Errorf("rs256 private key: PKCS8 key is not RSA")
		}
		priv = rsaPriv
	}

	pubBlock, _ := pem.Decode(pubPEM)
	if pubBlock == nil {
		return nil, nil, fmt.Errorf("rs256 public key: not valid PEM")
	}
	pubAny, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("rs256 public key: %w", err)
	}
	pub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("rs256 public key: not an RSA key")
	}

	return priv, pub, nil
}

// OAuthAccessTokenTTL parses the configured access token lifetime, falling
// back to defaultAccessTokenTTL if unset or malformed.
func (c *Config) OAuthAccessTokenTTL() time.Duration {
	if c.Document.OAuth.AccessTokenTTL == "" {
		return defaultAccessTokenTTL
	}
	d, err := time.ParseDuration(c.Document.OAuth.AccessTokenTTL)
	if err != nil {
		slog.Warn("invalid oauth access_token_ttl, using default", "value", c.Document.OAuth.AccessTokenTTL, "default", defaultAccessTokenTTL)
		return defaultAccessTokenTTL
	}
	return d
}

// HexToBytes is a small helper retained for callers that still configure
// secrets as hex rather than base64 (e.g. compatibility with encryption
// keys generated by older tooling).
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
