// Package config loads pingapi-server settings.
//
// Settings are read from pingapi.yaml (in the working directory or config/)
// or an explicit file, and can be overridden with PINGAPI_* environment
// variables, e.g. PINGAPI_SERVER_LISTEN or PINGAPI_ANIMATION_ENABLED.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "pingapi"
	envPrefix         = "PINGAPI"
)

type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Status    StatusConfig
	Animation AnimationConfig
	Redis     RedisConfig
	NATS      NATSConfig

	// CancelPong drops the pong after every status response.
	CancelPong  bool
	MaxLogLines int
}

type StatusConfig struct {
	MOTD          string
	VersionName   string
	Protocol      int // 0 echoes the client's protocol
	MaxPlayers    int
	OnlinePlayers int
	Sample        []string
	FaviconPath   string
}

type AnimationConfig struct {
	Enabled        bool
	Steps          int
	PeriodTicks    int
	MOTDFrames     []string
	ProtocolFrames []string
}

// RedisConfig is optional; an empty Addr disables the redis player source.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	OnlineKey  string
	SampleKey  string
	SampleSize int
	Timeout    time.Duration
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL     string
	Subject string
}

// Load reads configuration. path may be empty to search the default locations;
// a missing default file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.listen", ":25565")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10s")

	v.SetDefault("status.motd", "&bA PingAPI server")
	v.SetDefault("status.version_name", "PingAPI")
	v.SetDefault("status.protocol", 0)
	v.SetDefault("status.max_players", 20)
	v.SetDefault("status.online_players", 0)
	v.SetDefault("status.sample", []string{})
	v.SetDefault("status.favicon", "")

	v.SetDefault("pong.cancel", false)

	v.SetDefault("animation.enabled", false)
	v.SetDefault("animation.steps", 20)
	v.SetDefault("animation.period_ticks", 10)
	v.SetDefault("animation.motd_frames", []string{"&aPing", "&ePing&6.", "&cPing&6..", "&dPing&6..."})
	v.SetDefault("animation.protocol_frames", []string{})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.online_key", "pingapi:online")
	v.SetDefault("redis.sample_key", "pingapi:online")
	v.SetDefault("redis.sample_size", 12)
	v.SetDefault("redis.timeout", "250ms")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "pingapi.ping")

	v.SetDefault("tui.max_log_lines", 500)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:   strings.TrimSpace(v.GetString("server.listen")),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Status: StatusConfig{
			MOTD:          v.GetString("status.motd"),
			VersionName:   v.GetString("status.version_name"),
			Protocol:      v.GetInt("status.protocol"),
			MaxPlayers:    v.GetInt("status.max_players"),
			OnlinePlayers: v.GetInt("status.online_players"),
			Sample:        v.GetStringSlice("status.sample"),
			FaviconPath:   strings.TrimSpace(v.GetString("status.favicon")),
		},
		CancelPong: v.GetBool("pong.cancel"),
		Animation: AnimationConfig{
			Enabled:        v.GetBool("animation.enabled"),
			Steps:          v.GetInt("animation.steps"),
			PeriodTicks:    v.GetInt("animation.period_ticks"),
			MOTDFrames:     v.GetStringSlice("animation.motd_frames"),
			ProtocolFrames: v.GetStringSlice("animation.protocol_frames"),
		},
		Redis: RedisConfig{
			Addr:       strings.TrimSpace(v.GetString("redis.addr")),
			Password:   v.GetString("redis.password"),
			DB:         v.GetInt("redis.db"),
			OnlineKey:  v.GetString("redis.online_key"),
			SampleKey:  v.GetString("redis.sample_key"),
			SampleSize: v.GetInt("redis.sample_size"),
			Timeout:    v.GetDuration("redis.timeout"),
		},
		NATS: NATSConfig{
			URL:     strings.TrimSpace(v.GetString("nats.url")),
			Subject: strings.TrimSpace(v.GetString("nats.subject")),
		},
		MaxLogLines: v.GetInt("tui.max_log_lines"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Status.MaxPlayers < 0 || c.Status.OnlinePlayers < 0 {
		return fmt.Errorf("status player counts must not be negative")
	}
	if c.Animation.Enabled {
		if c.Animation.Steps <= 0 {
			return fmt.Errorf("invalid animation.steps %d", c.Animation.Steps)
		}
		if c.Animation.PeriodTicks <= 0 {
			return fmt.Errorf("invalid animation.period_ticks %d", c.Animation.PeriodTicks)
		}
		if len(c.Animation.MOTDFrames) == 0 {
			return fmt.Errorf("animation.motd_frames must not be empty")
		}
	}
	if c.Redis.Addr != "" && c.Redis.OnlineKey == "" {
		return fmt.Errorf("redis.online_key must not be empty")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject must not be empty")
	}
	return nil
}
