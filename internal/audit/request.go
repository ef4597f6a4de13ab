package audit

import (
	"net/http"
	"strings"
)

const unknown = "unknown"

// RequestInfo is the provenance recorded with every audit entry
type RequestInfo struct {
	IPAddress string
	UserAgent string
	Method    string
	Path      string
}

// FromRequest extracts provenance from an inbound HTTP request
func FromRequest(r *http.Request) RequestInfo {
	if r == nil {
		return RequestInfo{IPAddress: unknown, UserAgent: unknown}
	}
	path := ""
	if r.URL != nil {
		path = r.URL.Path
	}
	return RequestInfo{
		IPAddress: ClientIP(r.Header),
		UserAgent: UserAgent(r.Header),
		Method:    r.Method,
		Path:      path,
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, else "unknown"
func ClientIP(h http.Header) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return unknown
}

// UserAgent returns the User-Agent header or "unknown"
func UserAgent(h http.Header) string {
	if ua := h.Get("User-Agent"); ua != "" {
		return ua
	}
	return unknown
}
