package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Token store backends.
const (
	TokenStoreFile      = "file"
	TokenStoreFirestore = "firestore"
)

// Config is the full server configuration.
type Config struct {
	OAuth   OAuthConfig   `json:"oauth"`
	Server  ServerConfig  `json:"server"`
	Cache   CacheConfig   `json:"cache"`
	Logging LoggingConfig `json:"logging"`
}

// OAuthConfig locates the client-secret material and the persisted token.
type OAuthConfig struct {
	// ClientSecretPath is a path to the client-secret JSON downloaded from
	// the Google Cloud console. Ignored when ClientSecretName is set.
	ClientSecretPath string `json:"client_secret_path,omitempty"`

	// ProjectID and ClientSecretName select a Secret Manager secret holding
	// the client-secret JSON instead of a local file.
	ProjectID        string `json:"project_id,omitempty"`
	ClientSecretName string `json:"client_secret_name,omitempty"`

	// TokenStore selects the credential backend: "file" or "firestore".
	TokenStore          string `json:"token_store,omitempty"`
	TokenPath           string `json:"token_path,omitempty"`
	FirestoreCollection string `json:"firestore_collection,omitempty"`
	FirestoreDocID      string `json:"firestore_doc_id,omitempty"`

	// OpenBrowser launches the consent URL automatically during the
	// interactive grant. The URL is always logged regardless.
	OpenBrowser bool `json:"open_browser,omitempty"`
}

// ServerConfig configures the protocol transport.
type ServerConfig struct {
	Transport      string        `json:"transport,omitempty"`
	Addr           string        `json:"addr,omitempty"`
	APIKey         string        `json:"api_key,omitempty"`
	AllowedOrigins []string      `json:"allowed_origins,omitempty"`
	RateLimitRPS   float64       `json:"rate_limit_rps,omitempty"`
	RateLimitBurst int           `json:"rate_limit_burst,omitempty"`
	RequestTimeout time.Duration `json:"-"`
}

// CacheConfig configures the normalized-deck cache.
type CacheConfig struct {
	DeckCacheSize int           `json:"deck_cache_size,omitempty"`
	DeckCacheTTL  time.Duration `json:"-"`
	// DeckCacheTTLSeconds is the JSON/env form of DeckCacheTTL.
	DeckCacheTTLSeconds int `json:"deck_cache_ttl_seconds,omitempty"`
}

// LoggingConfig controls the operational log sink. stdout belongs to the
// stdio protocol, so file output is the only sink in stdio mode.
type LoggingConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	File    string `json:"file,omitempty"`
	Level   string `json:"level,omitempty"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		OAuth: OAuthConfig{
			TokenStore:          TokenStoreFile,
			TokenPath:           defaultTokenPath(),
			FirestoreCollection: "credentials",
			FirestoreDocID:      "slides-mcp",
			OpenBrowser:         true,
		},
		Server: ServerConfig{
			Transport:      TransportStdio,
			Addr:           ":8080",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			RequestTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			DeckCacheSize: 100,
			DeckCacheTTL:  5 * time.Minute,
		},
		Logging: LoggingConfig{
			File:  "logs.txt",
			Level: "info",
		},
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "token.json"
	}
	return filepath.Join(home, ".slides-mcp", "token.json")
}

// Load builds the configuration from defaults, an optional JSON file, and
// environment variables, in that precedence order (env wins).
func Load() (*Config, error) {
	cfg := Default()

	paths := []string{
		os.Getenv("CONFIG_FILE"),
		"config.json",
		filepath.Join(os.Getenv("HOME"), ".slides-mcp", "config.json"),
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := cfg.loadFile(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		break
	}

	cfg.loadEnv()

	if cfg.Cache.DeckCacheTTLSeconds > 0 {
		cfg.Cache.DeckCacheTTL = time.Duration(cfg.Cache.DeckCacheTTLSeconds) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	setString(&c.OAuth.ClientSecretPath, "OAUTH_CLIENT_SECRET")
	setString(&c.OAuth.TokenPath, "OAUTH_CLIENT_TOKEN")
	setString(&c.OAuth.ProjectID, "GOOGLE_PROJECT_ID")
	setString(&c.OAuth.ClientSecretName, "OAUTH_CLIENT_SECRET_NAME")
	setString(&c.OAuth.TokenStore, "TOKEN_STORE")
	setString(&c.OAuth.FirestoreCollection, "FIRESTORE_COLLECTION")
	setString(&c.OAuth.FirestoreDocID, "FIRESTORE_DOC_ID")
	setBool(&c.OAuth.OpenBrowser, "OAUTH_OPEN_BROWSER")

	setString(&c.Server.Transport, "MCP_TRANSPORT")
	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.Server.APIKey, "API_KEY")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitAndTrim(v)
	}
	setFloat(&c.Server.RateLimitRPS, "RATE_LIMIT_RPS")
	setInt(&c.Server.RateLimitBurst, "RATE_LIMIT_BURST")

	setInt(&c.Cache.DeckCacheSize, "DECK_CACHE_SIZE")
	setInt(&c.Cache.DeckCacheTTLSeconds, "DECK_CACHE_TTL_SECONDS")

	setBool(&c.Logging.Enabled, "ENABLE_LOGGING")
	setString(&c.Logging.File, "LOG_FILE")
	setString(&c.Logging.Level, "LOG_LEVEL")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.OAuth.ClientSecretPath == "" && c.OAuth.ClientSecretName == "" {
		return fmt.Errorf("no OAuth client secret configured: set OAUTH_CLIENT_SECRET to a client-secret JSON path or OAUTH_CLIENT_SECRET_NAME to a Secret Manager secret")
	}
	if c.OAuth.ClientSecretName != "" && c.OAuth.ProjectID == "" {
		return fmt.Errorf("OAUTH_CLIENT_SECRET_NAME requires GOOGLE_PROJECT_ID")
	}

	switch c.OAuth.TokenStore {
	case TokenStoreFile:
		if c.OAuth.TokenPath == "" {
			return fmt.Errorf("file token store requires OAUTH_CLIENT_TOKEN")
		}
	case TokenStoreFirestore:
		if c.OAuth.ProjectID == "" {
			return fmt.Errorf("firestore token store requires GOOGLE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unknown token store %q (want %q or %q)", c.OAuth.TokenStore, TokenStoreFile, TokenStoreFirestore)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Server.Transport, TransportStdio, TransportHTTP)
	}
	if c.Server.Transport == TransportHTTP && c.Server.Addr == "" {
		return fmt.Errorf("http transport requires HTTP_ADDR")
	}

	if c.Cache.DeckCacheSize < 0 {
		return fmt.Errorf("deck cache size must be non-negative, got %d", c.Cache.DeckCacheSize)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
