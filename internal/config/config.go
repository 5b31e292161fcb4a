package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	LogLevel     string        `mapstructure:"log_level"`
	StaticPath   string        `mapstructure:"static_path"`
	Secret       string        `mapstructure:"secret"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`

	Voice      VoiceConfig     `mapstructure:"voice"`
	Directory  DirectoryConfig `mapstructure:"directory"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	ICEServers []ICEServer     `mapstructure:"ice_servers"`
}

type VoiceConfig struct {
	GracePeriod time.Duration `mapstructure:"grace_period"`
	RingTimeout time.Duration `mapstructure:"ring_timeout"`
	RingLimit   int           `mapstructure:"ring_limit"`
	RingWindow  time.Duration `mapstructure:"ring_window"`
	FanOut      int           `mapstructure:"fan_out"`
}

// DirectoryConfig selects where chat membership comes from.
// Members and Contacts seed the in-memory directory.
type DirectoryConfig struct {
	Driver   string              `mapstructure:"driver"`
	DSN      string              `mapstructure:"dsn"`
	Members  map[string][]string `mapstructure:"members"`
	Contacts map[string][]string `mapstructure:"contacts"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrUnknownDriver   = errors.New("unknown directory driver")
)

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). VOICE_* env vars override it.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFrom(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFrom(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("voice.grace_period", "5m")
	v.SetDefault("voice.ring_timeout", "30s")
	v.SetDefault("voice.ring_limit", 5)
	v.SetDefault("voice.ring_window", "1m")
	v.SetDefault("voice.fan_out", 16)
	v.SetDefault("directory.driver", DriverMemory)
	v.SetDefault("directory.dsn", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("directory", cfg.Directory.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"ping_period", c.PingPeriod},
		{"pong_wait", c.PongWait},
		{"write_timeout", c.WriteTimeout},
		{"voice.grace_period", c.Voice.GracePeriod},
		{"voice.ring_timeout", c.Voice.RingTimeout},
		{"voice.ring_window", c.Voice.RingWindow},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s: %w", d.name, ErrInvalidDuration)
		}
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period must be shorter than pong_wait")
	}
	switch c.Directory.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Directory.DSN == "" {
			return fmt.Errorf("directory.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("%q: %w", c.Directory.Driver, ErrUnknownDriver)
	}
	return nil
}
