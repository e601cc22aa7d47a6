package ratelimit

import (
	"net/http"
	"strings"
)

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys requests by client IP.
func IPKeyFunc(r *http.Request) string {
	return ClientIP(r)
}

// HeaderKeyFunc keys requests by a header value, falling back to the
// client IP when the header is absent.
func HeaderKeyFunc(header string) KeyFunc {
	return func(r *http.Request) string {
		if value := r.Header.Get(header); value != "" {
			return value
		}
		return ClientIP(r)
	}
}

// ClientIP extracts the client IP from the request, honoring the
// forwarding headers set by proxies in front of the service.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	ip = strings.TrimPrefix(ip, "[")
	ip = strings.TrimSuffix(ip, "]")

	return ip
}
