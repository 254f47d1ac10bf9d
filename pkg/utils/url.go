package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// UnknownHost is the shared bucket for URLs whose host cannot be parsed.
const UnknownHost = "unknown"

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// Hostname returns the lower-cased host of rawURL without port, or
// UnknownHost when the URL does not parse or has no host.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return UnknownHost
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return UnknownHost
	}
	return host
}

// HostContainsAny reports whether host contains one of the given fragments.
// Empty fragments never match.
func HostContainsAny(host string, fragments []string) bool {
	host = strings.ToLower(host)
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && strings.Contains(host, f) {
			return true
		}
	}
	return false
}
