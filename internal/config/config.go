// Package config provides configuration management for the OpenADR VEN core.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like VEN_VEN_ID, LOG_LEVEL)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	VEN      VENConfig      `mapstructure:"ven"`
	HTTPPoll HTTPPollConfig `mapstructure:"http_poll"`
	XMPP     XMPPConfig     `mapstructure:"xmpp"`
	Store    StoreConfig    `mapstructure:"store"`
	Control  ControlConfig  `mapstructure:"control"`
	Log      LogConfig      `mapstructure:"log"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// VENConfig contains the VEN's own identity and the filters it applies to
// incoming events (spec.md §3, §4.3).
type VENConfig struct {
	VenID                string   `mapstructure:"ven_id"`
	PartyID              string   `mapstructure:"party_id"`
	GroupID              string   `mapstructure:"group_id"`
	ResourceID           string   `mapstructure:"resource_id"`
	AcceptedVtnIDs       []string `mapstructure:"accepted_vtn_ids"`
	AcceptedMarketContexts []string `mapstructure:"accepted_market_contexts"`
	Profile              string   `mapstructure:"profile"` // "2.0a" or "2.0b"
}

// HTTPPollConfig contains the HTTP-poll transport adapter settings
// (spec.md §4.5 / §6).
type HTTPPollConfig struct {
	VtnBaseURI     string        `mapstructure:"vtn_base_uri"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	ClientCertFile string   `mapstructure:"client_cert_file"`
	ClientKeyFile  string   `mapstructure:"client_key_file"`
	CABundleFile   string   `mapstructure:"ca_bundle_file"`
	CipherSuites   []string `mapstructure:"cipher_suites"`
}

// XMPPConfig contains the XMPP-push transport adapter settings.
type XMPPConfig struct {
	JID              string        `mapstructure:"jid"`
	Password         string        `mapstructure:"password"`
	ServerHost       string        `mapstructure:"server_host"`
	ServerPort       int           `mapstructure:"server_port"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`

	CABundleFile string `mapstructure:"ca_bundle_file"`
}

// StoreConfig contains the durable Event Store settings.
type StoreConfig struct {
	SQLitePath  string `mapstructure:"sqlite_path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ControlConfig contains Event Controller loop settings.
type ControlConfig struct {
	LoopInterval time.Duration `mapstructure:"loop_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	PollPoolSize    int `mapstructure:"poll_pool_size"`
	ControlPoolSize int `mapstructure:"control_pool_size"`
}

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (VEN_VEN_ID, LOG_LEVEL, etc.).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/oadr2ven")

	// Environment variable override.
	// No prefix: uses standard names like VEN_VEN_ID, HTTP_POLL_VTN_BASE_URI.
	// Maps nested config: http_poll.poll_interval → HTTP_POLL_POLL_INTERVAL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.VEN.VenID == "" {
		return fmt.Errorf("ven.ven_id must not be empty")
	}
	if len(c.VEN.AcceptedVtnIDs) == 0 {
		return fmt.Errorf("ven.accepted_vtn_ids must not be empty")
	}
	switch c.VEN.Profile {
	case "2.0a", "2.0b":
	default:
		return fmt.Errorf("ven.profile must be 2.0a or 2.0b, got %q", c.VEN.Profile)
	}
	if c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path must not be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// VEN. Keys default to empty so Unmarshal sees them and AutomaticEnv
	// can supply their values.
	v.SetDefault("ven.ven_id", "")
	v.SetDefault("ven.party_id", "")
	v.SetDefault("ven.group_id", "")
	v.SetDefault("ven.resource_id", "")
	v.SetDefault("ven.accepted_vtn_ids", []string{})
	v.SetDefault("ven.profile", "2.0b")
	v.SetDefault("ven.accepted_market_contexts", []string{})

	// HTTP poll (spec.md §5: poll interval defaults to 300s, request
	// timeout to 5s).
	v.SetDefault("http_poll.poll_interval", "300s")
	v.SetDefault("http_poll.request_timeout", "5s")
	v.SetDefault("http_poll.cipher_suites", []string{})
	v.SetDefault("http_poll.vtn_base_uri", "")
	v.SetDefault("http_poll.client_cert_file", "")
	v.SetDefault("http_poll.client_key_file", "")
	v.SetDefault("http_poll.ca_bundle_file", "")

	// XMPP
	v.SetDefault("xmpp.jid", "")
	v.SetDefault("xmpp.password", "")
	v.SetDefault("xmpp.server_host", "")
	v.SetDefault("xmpp.ca_bundle_file", "")
	v.SetDefault("xmpp.server_port", 5222)
	v.SetDefault("xmpp.keepalive_interval", "60s")

	// Store
	v.SetDefault("store.sqlite_path", "ven.db")
	v.SetDefault("store.auto_migrate", true)

	// Control
	v.SetDefault("control.loop_interval", "30s")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker pool: exactly one long-lived task per loop (spec §5).
	v.SetDefault("worker.poll_pool_size", 1)
	v.SetDefault("worker.control_pool_size", 1)
}
