package httpfetch

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// ClientOptions selects how outbound product page requests are made.
type ClientOptions struct {
	Timeout time.Duration
	// AllowPrivateTargets turns off the SSRF guard. Local testing only.
	AllowPrivateTargets bool
	Proxies             *ProxyRotator
}

// NewClient builds the HTTP client used for static fetches.
//
// Product URLs come from subscribers, so by default requests go through
// safeurl, which refuses private, loopback and link-local addresses after
// DNS resolution. When proxies are configured the connection is made to an
// operator-chosen proxy instead of the product host, and a plain transport
// rotating through them is used.
func NewClient(opts ClientOptions) *http.Client {
	if opts.Proxies != nil && opts.Proxies.Len() > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = opts.Proxies.Proxy
		return &http.Client{Timeout: opts.Timeout, Transport: transport}
	}
	if opts.AllowPrivateTargets {
		return &http.Client{Timeout: opts.Timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(opts.Timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}
