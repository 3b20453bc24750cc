package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLiteralIP(t *testing.T) {
	r := NewResolver()
	ip, err := r.Lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestLookupPrefersIPv4(t *testing.T) {
	r := NewResolver()
	r.lookup = func(ctx context.Context, _ *net.Resolver, host string) ([]string, error) {
		return []string{"2001:db8::1", "192.0.2.10"}, nil
	}

	ip, err := r.Lookup(context.Background(), "signal.example.com")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ip)
}

func TestLookupFallsBackToPublicRace(t *testing.T) {
	calls := 0
	r := &Resolver{Servers: []string{"192.0.2.53"}, LocalTimeout: time.Second, RaceTimeout: time.Second}
	r.lookup = func(ctx context.Context, res *net.Resolver, host string) ([]string, error) {
		calls++
		if !res.PreferGo {
			return nil, errors.New("system resolver broken")
		}
		return []string{"198.51.100.7"}, nil
	}

	ip, err := r.Lookup(context.Background(), "signal.example.com")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", ip)
	assert.Equal(t, 2, calls)
}

func TestLookupAllServersFail(t *testing.T) {
	r := &Resolver{Servers: []string{"192.0.2.1", "192.0.2.2"}, LocalTimeout: time.Second, RaceTimeout: time.Second}
	r.lookup = func(ctx context.Context, _ *net.Resolver, host string) ([]string, error) {
		return nil, errors.New("nxdomain")
	}

	_, err := r.Lookup(context.Background(), "missing.example.com")
	assert.ErrorContains(t, err, "all 2 public DNS servers failed")
}

func TestTrimBrackets(t *testing.T) {
	assert.Equal(t, "2606:4700:4700::1111", trimBrackets("[2606:4700:4700::1111]"))
	assert.Equal(t, "8.8.8.8", trimBrackets("8.8.8.8"))
}
