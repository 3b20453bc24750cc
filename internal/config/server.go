package config

import (
	"fmt"
	"strings"
	"time"
)

// ServerConfig holds the room coordination service configuration
type ServerConfig struct {
	Addr           string
	JWTSecret      string
	AllowedOrigins []string

	// Presence selects the membership store: "memory" or "redis"
	Presence    string
	PresenceTTL time.Duration
	Redis       RedisConfig

	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64

	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerOptions for loading server config with CLI flag overrides
type ServerOptions struct {
	ConfigFile string
	Addr       string
	JWTSecret  string
	Presence   string
	RedisAddr  string
	LogLevel   string
}

// LoadServer reads the service configuration with the same priority as Load.
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	v, err := newViper(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.addr", DefaultListenAddr)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("presence.driver", "memory")
	v.SetDefault("presence.ttl", DefaultPresenceTTL)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("websocket.write_wait", DefaultWriteWait)
	v.SetDefault("websocket.pong_wait", DefaultPongWait)
	v.SetDefault("websocket.max_message_size", DefaultMaxMessageSize)
	v.SetDefault("log.level", "info")

	bindEnv(v, map[string]string{
		"server.addr":            "LISTEN_ADDR",
		"server.jwt_secret":      "JWT_SECRET",
		"server.allowed_origins": "ALLOWED_ORIGINS",
		"presence.driver":        "PRESENCE_DRIVER",
		"presence.ttl":           "PRESENCE_TTL",
		"redis.addr":             "REDIS_ADDRESS",
		"redis.password":         "REDIS_PASSWORD",
		"redis.db":               "REDIS_DB",
		"log.level":              "LOG_LEVEL",
	})

	override(v, "server.addr", opts.Addr)
	override(v, "server.jwt_secret", opts.JWTSecret)
	override(v, "presence.driver", opts.Presence)
	override(v, "redis.addr", opts.RedisAddr)
	override(v, "log.level", opts.LogLevel)

	cfg := &ServerConfig{
		Addr:           v.GetString("server.addr"),
		JWTSecret:      v.GetString("server.jwt_secret"),
		AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
		Presence:       strings.ToLower(v.GetString("presence.driver")),
		PresenceTTL:    v.GetDuration("presence.ttl"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		WriteWait:      v.GetDuration("websocket.write_wait"),
		PongWait:       v.GetDuration("websocket.pong_wait"),
		MaxMessageSize: v.GetInt64("websocket.max_message_size"),
		LogLevel:       v.GetString("log.level"),
	}

	switch cfg.Presence {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown presence driver %q", cfg.Presence)
	}
	if cfg.PongWait <= 0 || cfg.WriteWait <= 0 {
		return nil, fmt.Errorf("websocket timeouts must be positive")
	}

	return cfg, nil
}

// PingPeriod is how often the service pings clients. Must be less than PongWait.
func (c *ServerConfig) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// OriginAllowed reports whether a browser origin may open a signaling socket.
func (c *ServerConfig) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
