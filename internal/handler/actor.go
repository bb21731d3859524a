package handler

import (
	"net"
	"net/http"
	"strings"

	"go-file-guard/internal/middleware"
)

// requesterID identifies who asked for an operation: the authenticated
// username when present, the client IP otherwise.
func requesterID(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Username != "" {
		return claims.Username
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	xri := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}

	return strings.TrimSpace(r.RemoteAddr)
}
