package cmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/logging"
)

// clientFlags are shared by every command that talks to the coordination
// service.
type clientFlags struct {
	domain   string
	insecure bool
	token    string
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Coordination service domain")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Use ws:// and http:// (local development)")
	cmd.Flags().StringVar(&f.token, "token", "", "Access token")
}

func (f *clientFlags) registerICE(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
}

func (f *clientFlags) options() config.Options {
	return config.Options{
		ConfigFile: flagConfig,
		Domain:     f.domain,
		Insecure:   f.insecure,
		Token:      f.token,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
		LogLevel:   flagLogLevel,
	}
}

// LoadConfig loads the client configuration and applies its log level.
func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, callerr.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	logging.Init(cfg.LogLevel, slog.LevelError)
	return cfg, nil
}

// roomFromArg accepts a bare room id or a room link such as
// https://meet.example.com/r/otter-maple-cobalt-brave.
func roomFromArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "/") {
		if arg == "" {
			return "", callerr.ErrNoRoom
		}
		return arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid room link %q: %w", arg, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	room := parts[len(parts)-1]
	if room == "" {
		return "", fmt.Errorf("room link %q has no room id", arg)
	}
	return room, nil
}
