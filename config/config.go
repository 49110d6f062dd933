package config

import (
	"errors"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	State      StateConfig      `yaml:"state"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Display    DisplayConfig    `yaml:"display"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port               int      `yaml:"port"`
	RateLimitPerSec    float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds    int      `yaml:"cache_ttl_seconds"`
	CORSAllowOrigins   []string `yaml:"cors_allow_origins"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_seconds"`

	// DisableResponseCache turns off the GET /api/video cache. It is forced on
	// with the redis backend, where other replicas cannot invalidate it.
	DisableResponseCache bool `yaml:"disable_response_cache"`
}

// StateConfig selects where the current call and video live.
type StateConfig struct {
	Backend string      `yaml:"backend"` // "memory" or "redis"
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the connection settings for the redis state backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "postgres" selects the postgres driver; anything else is
// handed to sqlite.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// MQTTConfig holds the broker settings for retained call announcements.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
}

// DisplayConfig holds the public display client configuration.
type DisplayConfig struct {
	ServerURL            string        `yaml:"server_url"`
	CallIntervalSeconds  int           `yaml:"call_interval_seconds"`
	CallInterval         time.Duration `yaml:"-"`
	VideoIntervalSeconds int           `yaml:"video_interval_seconds"`
	VideoInterval        time.Duration `yaml:"-"`
	PhraseTemplate       string        `yaml:"phrase_template"`
	Lang                 string        `yaml:"lang"`
	SpeakerCommand       string        `yaml:"speaker_command"`
	DuckVolume           int           `yaml:"duck_volume"`
	FullVolume           int           `yaml:"full_volume"`
	DuckSeconds          int           `yaml:"duck_seconds"`
	DuckDuration         time.Duration `yaml:"-"`
	Screens              int           `yaml:"screens"`
}

// DefaultPhraseTemplate is spoken for every new call.
const DefaultPhraseTemplate = "Paciente {name}, dirija-se ao {room}."

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if len(cfg.Server.CORSAllowOrigins) == 0 {
		cfg.Server.CORSAllowOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		cfg.Server.ShutdownTimeoutSec = 5
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = "memory"
	}
	if cfg.State.Redis.KeyPrefix == "" {
		cfg.State.Redis.KeyPrefix = "clinic-call:"
	}
	if cfg.State.Redis.TTLHours < 0 {
		cfg.State.Redis.TTLHours = 0
	}
	if cfg.State.Backend == "redis" && !cfg.Server.DisableResponseCache {
		log.Printf("state.backend is redis; disabling the response cache")
		cfg.Server.DisableResponseCache = true
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file::memory:?cache=shared"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "calld"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "clinic/display"
	}

	d := &cfg.Display
	if d.ServerURL == "" {
		d.ServerURL = "http://localhost:8080"
	}
	if d.CallIntervalSeconds <= 0 {
		d.CallIntervalSeconds = 3
	}
	d.CallInterval = time.Duration(d.CallIntervalSeconds) * time.Second
	if d.VideoIntervalSeconds <= 0 {
		d.VideoIntervalSeconds = 30
	}
	d.VideoInterval = time.Duration(d.VideoIntervalSeconds) * time.Second
	if d.PhraseTemplate == "" {
		d.PhraseTemplate = DefaultPhraseTemplate
	}
	if d.Lang == "" {
		d.Lang = "pt-BR"
	}
	if d.SpeakerCommand == "" {
		d.SpeakerCommand = "espeak-ng"
	}
	if d.DuckVolume <= 0 {
		d.DuckVolume = 20
	}
	if d.FullVolume <= 0 {
		d.FullVolume = 100
	}
	if d.DuckSeconds <= 0 {
		d.DuckSeconds = 10
	}
	d.DuckDuration = time.Duration(d.DuckSeconds) * time.Second
	if d.Screens <= 0 {
		d.Screens = 1
	}
}
