// Package security guards outbound page retrieval against SSRF.
//
// Chat messages may carry arbitrary URLs that the retrieval client then
// fetches server-side. The guard blocks requests to private networks,
// loopback, link-local ranges and cloud metadata endpoints, both at the
// URL level and again at DNS resolution time (DNS rebinding).
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxRedirects bounds redirect chains on guarded clients.
const maxRedirects = 5

// URLGuard validates fetch targets before the retrieval client connects.
type URLGuard struct {
	blockedHosts  map[string]struct{}
	allowLoopback bool
}

// NewURLGuard creates a guard with the default blocklist.
func NewURLGuard() *URLGuard {
	return &URLGuard{
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
}

// AllowLoopback permits loopback targets, for local development against
// services running on the same host. Never enable behind a public endpoint.
func (g *URLGuard) AllowLoopback() {
	g.allowLoopback = true
}

// CheckURL performs static validation of a fetch target.
// Resolution-time checks happen again in the guarded transport, so a
// hostname passing here can still be refused at dial time.
func (g *URLGuard) CheckURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported scheme %q: only http and https are fetchable", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}
	return g.checkHost(host)
}

func (g *URLGuard) checkHost(host string) error {
	lower := strings.ToLower(host)
	if lower == "localhost" && g.allowLoopback {
		return nil
	}
	if _, blocked := g.blockedHosts[lower]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		return g.checkIP(ip)
	}
	return nil
}

// checkIP refuses addresses outside the public internet.
func (g *URLGuard) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 (::ffff:127.0.0.1 -> 127.0.0.1).
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	switch {
	case ip.IsLoopback():
		if g.allowLoopback {
			return nil
		}
		return fmt.Errorf("loopback address not allowed: %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("private address not allowed: %s", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		// Covers the 169.254.169.254 cloud metadata endpoint.
		return fmt.Errorf("link-local address not allowed: %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}
	return nil
}

// Client returns an HTTP client whose dialer re-validates resolved
// addresses and whose redirect policy re-checks every hop.
func (g *URLGuard) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         g.dialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return g.CheckURL(req.URL.String())
		},
	}
}

// dialContext resolves the host itself and connects to a vetted address,
// so a post-validation DNS change cannot redirect the fetch inward.
func (g *URLGuard) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = ""
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := g.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses resolved for %s", host)
	}
	for _, ip := range ips {
		if err := g.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked (%s resolved to %s): %w", host, ip, err)
		}
	}

	target := ips[0].String()
	if port != "" {
		target = net.JoinHostPort(target, port)
	}
	return (&net.Dialer{}).DialContext(ctx, network, target)
}
