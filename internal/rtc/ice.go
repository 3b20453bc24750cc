package rtc

import (
	"net"
	"strings"

	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
)

// cgnatBlock covers Carrier Grade NAT, Cloudflare WARP and Tailscale.
var cgnatBlock = mustCIDR("100.64.0.0/10")

var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp", "utun"}

// ICEConfiguration builds the ICE servers and transport policy for cfg.
// Relay-only is used when it is forced or the host looks tunneled, and only
// when a TURN server is actually configured.
func ICEConfiguration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or
// CGNAT, where direct connectivity usually fails.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		var ips []net.IP
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					ips = append(ips, v.IP)
				case *net.IPAddr:
					ips = append(ips, v.IP)
				}
			}
		}

		if looksTunneled(iface.Name, ips) {
			return true
		}
	}

	return false
}

func looksTunneled(name string, ips []net.IP) bool {
	name = strings.ToLower(name)
	for _, hint := range tunnelNames {
		if strings.Contains(name, hint) {
			return true
		}
	}
	for _, ip := range ips {
		if cgnatBlock.Contains(ip) {
			return true
		}
	}
	return false
}

func mustCIDR(s string) *net.IPNet {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return block
}
