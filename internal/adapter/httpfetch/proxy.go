package httpfetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// ProxyRotator hands out configured proxies in round-robin order.
type ProxyRotator struct {
	mu      sync.Mutex
	proxies []*url.URL
	next    int
}

// NewProxyRotator parses raw proxy URLs. Blank entries are skipped.
func NewProxyRotator(raw []string) (*ProxyRotator, error) {
	r := &ProxyRotator{}
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", s)
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

// Len returns the number of proxies in rotation.
func (r *ProxyRotator) Len() int {
	return len(r.proxies)
}

// Next returns a proxy URL, rotating sequentially. nil means a direct connection.
func (r *ProxyRotator) Next() *url.URL {
	if len(r.proxies) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

// Proxy matches the signature of http.Transport.Proxy.
func (r *ProxyRotator) Proxy(*http.Request) (*url.URL, error) {
	return r.Next(), nil
}
