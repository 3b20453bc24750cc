package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values (production)
const (
	DefaultDomain   = "meet.interviewpro.dev"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURNUser = "interviewpro"

	DefaultListenAddr     = ":8080"
	DefaultPresenceTTL    = 24 * time.Hour
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxMessageSize = 64 * 1024
)

// Config holds the call client configuration
type Config struct {
	// Domain is the coordination service host (host or host:port)
	Domain string

	// Insecure switches to ws:// and http:// (local development)
	Insecure bool

	// ServerURL and WebSocketURL are constructed from Domain
	ServerURL    string
	WebSocketURL string

	// Token is the bearer token attached to the signaling handshake
	Token string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Ephemeral UDP port range for ICE, zero means unrestricted
	UDPPortMin int
	UDPPortMax int

	// Media sources played as camera, microphone and screen capture
	Camera     string
	Microphone string
	Screen     string

	LogLevel string
}

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile string
	Domain     string
	Insecure   bool
	Token      string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Camera     string
	Microphone string
	Screen     string
	LogLevel   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Config file (interviewpro.yaml)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v, err := newViper(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	v.SetDefault("domain", DefaultDomain)
	v.SetDefault("insecure", false)
	v.SetDefault("stun_server", DefaultSTUN)
	v.SetDefault("turn_server", "")
	v.SetDefault("turn_username", DefaultTURNUser)
	v.SetDefault("turn_password", "")
	v.SetDefault("force_relay", false)
	v.SetDefault("udp_port_min", 0)
	v.SetDefault("udp_port_max", 0)

	bindEnv(v, map[string]string{
		"domain":        "DOMAIN",
		"insecure":      "INSECURE",
		"token":         "INTERVIEWPRO_TOKEN",
		"stun_server":   "STUN_SERVER",
		"turn_server":   "TURN_SERVER",
		"turn_username": "TURN_USERNAME",
		"turn_password": "TURN_PASSWORD",
		"force_relay":   "FORCE_RELAY",
		"udp_port_min":  "RTC_UDP_PORT_MIN",
		"udp_port_max":  "RTC_UDP_PORT_MAX",
		"camera":        "CAMERA_SOURCE",
		"microphone":    "MICROPHONE_SOURCE",
		"screen":        "SCREEN_SOURCE",
		"log_level":     "LOG_LEVEL",
	})

	override(v, "domain", opts.Domain)
	override(v, "token", opts.Token)
	override(v, "stun_server", opts.STUNServer)
	override(v, "turn_server", opts.TURNServer)
	override(v, "turn_username", opts.TURNUser)
	override(v, "turn_password", opts.TURNPass)
	override(v, "camera", opts.Camera)
	override(v, "microphone", opts.Microphone)
	override(v, "screen", opts.Screen)
	override(v, "log_level", opts.LogLevel)
	if opts.Insecure {
		v.Set("insecure", true)
	}
	if opts.ForceRelay {
		v.Set("force_relay", true)
	}

	cfg := &Config{
		Domain:     strings.TrimSuffix(v.GetString("domain"), "/"),
		Insecure:   v.GetBool("insecure"),
		Token:      v.GetString("token"),
		STUNServer: v.GetString("stun_server"),
		TURNServer: v.GetString("turn_server"),
		TURNUser:   v.GetString("turn_username"),
		TURNPass:   v.GetString("turn_password"),
		ForceRelay: v.GetBool("force_relay"),
		UDPPortMin: v.GetInt("udp_port_min"),
		UDPPortMax: v.GetInt("udp_port_max"),
		Camera:     v.GetString("camera"),
		Microphone: v.GetString("microphone"),
		Screen:     v.GetString("screen"),
		LogLevel:   v.GetString("log_level"),
	}
	if cfg.Domain == "" {
		return nil, errors.New("domain cannot be empty")
	}
	if cfg.UDPPortMin < 0 || cfg.UDPPortMax > 65535 || cfg.UDPPortMin > cfg.UDPPortMax {
		return nil, fmt.Errorf("invalid UDP port range %d-%d", cfg.UDPPortMin, cfg.UDPPortMax)
	}

	httpScheme, wsScheme := "https", "wss"
	if cfg.Insecure {
		httpScheme, wsScheme = "http", "ws"
	}
	cfg.ServerURL = fmt.Sprintf("%s://%s", httpScheme, cfg.Domain)
	cfg.WebSocketURL = fmt.Sprintf("%s://%s/ws", wsScheme, cfg.Domain)

	return cfg, nil
}

// GetRoomLink returns the webapp URL for a room ID
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("%s/r/%s", c.ServerURL, roomID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", strings.TrimPrefix(c.TURNServer, "turn:")),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// newViper prepares a viper instance with an optional config file. A missing
// default file is not an error; a missing explicit file is.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("interviewpro")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "interviewpro"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return v, nil
}

func bindEnv(v *viper.Viper, keys map[string]string) {
	for key, env := range keys {
		_ = v.BindEnv(key, env)
	}
}

func override(v *viper.Viper, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
