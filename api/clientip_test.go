package api

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIPWithTrustedProxies(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name           string
		remoteAddr     string
		headers        map[string]string
		trustedProxies []netip.Prefix
		want           string
	}{
		{
			name:       "no proxies uses remote addr",
			remoteAddr: "192.168.1.1:1234",
			want:       "192.168.1.1",
		},
		{
			name:       "no proxies ignores forwarded headers",
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:       "192.168.1.1",
		},
		{
			name:           "trusted proxy honors first xff entry",
			remoteAddr:     "10.0.0.1:1234",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.2"},
			trustedProxies: trusted,
			want:           "203.0.113.50",
		},
		{
			name:           "trusted proxy skips invalid xff entries",
			remoteAddr:     "10.0.0.1:1234",
			headers:        map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7"},
			trustedProxies: trusted,
			want:           "198.51.100.7",
		},
		{
			name:           "forwarded header with quoted ipv6",
			remoteAddr:     "10.0.0.1:1234",
			headers:        map[string]string{"Forwarded": `for="[2001:db8::1]:4711";proto=https`},
			trustedProxies: trusted,
			want:           "2001:db8::1",
		},
		{
			name:           "x-real-ip fallback",
			remoteAddr:     "10.0.0.1:1234",
			headers:        map[string]string{"X-Real-IP": "198.51.100.30"},
			trustedProxies: trusted,
			want:           "198.51.100.30",
		},
		{
			name:           "untrusted peer cannot spoof",
			remoteAddr:     "203.0.113.99:1234",
			headers:        map[string]string{"X-Forwarded-For": "1.2.3.4"},
			trustedProxies: trusted,
			want:           "203.0.113.99",
		},
		{
			name:       "ipv4-mapped ipv6 is unmapped",
			remoteAddr: "[::ffff:192.0.2.1]:80",
			want:       "192.0.2.1",
		},
		{
			name:       "unparseable remote addr",
			remoteAddr: "not-an-ip",
			want:       "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIPWithProxies(r, tt.trustedProxies))
		})
	}
}

func TestClientAddressFallsBackToUnknown(t *testing.T) {
	a := &API{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ""
	assert.Equal(t, unknownClient, a.clientAddress(r))
}

func TestRetryAfterString(t *testing.T) {
	assert.Equal(t, "1", retryAfterString(0))
	assert.Equal(t, "1", retryAfterString(-time.Second))
	assert.Equal(t, "1", retryAfterString(300*time.Millisecond))
	assert.Equal(t, "2", retryAfterString(1500*time.Millisecond))
	assert.Equal(t, "900", retryAfterString(15*time.Minute))
}
