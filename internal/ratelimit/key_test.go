package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "192.0.2.1:51234",
			want:       "192.0.2.1",
		},
		{
			name:       "x-forwarded-for wins",
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "ipv6 brackets stripped",
			remoteAddr: "[2001:db8::1]:51234",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestHeaderKeyFunc(t *testing.T) {
	t.Parallel()

	keyFunc := HeaderKeyFunc("X-API-Client")

	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "192.0.2.1:51234"
	assert.Equal(t, "192.0.2.1", keyFunc(r), "falls back to IP")

	r.Header.Set("X-API-Client", "beamline-ui")
	assert.Equal(t, "beamline-ui", keyFunc(r))
}
