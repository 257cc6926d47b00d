// Package security guards outbound HTTP requests to operator-configured
// URLs. SafeTransport refuses to dial loopback, private, link-local
// (including the cloud metadata service) and other reserved ranges, so a
// misconfigured or hostile webhook URL cannot reach internal services.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"wardwatch/internal/types"
)

// dnsTimeout bounds host resolution during dial and redirect checks.
const dnsTimeout = 500 * time.Millisecond

// BlockedCIDRs are the ranges outbound webhook traffic may not reach.
var BlockedCIDRs = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16", // link-local, cloud metadata
	"0.0.0.0/8",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"100.64.0.0/10",
	"198.18.0.0/15",
	"fc00::/7",
	"fe80::/10",
	"::1/128",
}

var (
	ErrBlocked          = errors.New("ssrf: request to blocked IP range")
	ErrDNSTimeout       = errors.New("ssrf: DNS resolution timeout")
	ErrDNSFailed        = errors.New("ssrf: DNS resolution failed")
	ErrTooManyRedirects = errors.New("ssrf: too many redirects")
)

var blockedNets = mustParseCIDRs(BlockedCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("security: bad CIDR %q: %v", cidr, err))
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// IsBlockedIP reports whether ip falls within a blocked range.
func IsBlockedIP(ip net.IP) bool {
	for _, n := range blockedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for tests. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// resolveSafe resolves host and rejects it unless every address is allowed.
// Checking all addresses defeats DNS answers that mix public and private IPs.
func resolveSafe(ctx context.Context, r Resolver, host string) ([]net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if IsBlockedIP(ip) {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, ip)
		}
		return []net.IPAddr{{IP: ip}}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := r.LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return nil, fmt.Errorf("%w: host %q", ErrDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: host %q: %v", ErrDNSFailed, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrDNSFailed, host)
	}
	for _, a := range ips {
		if IsBlockedIP(a.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrBlocked, a.IP, host)
		}
	}
	return ips, nil
}

// SafeTransport is an http.RoundTripper whose dialer validates every
// resolved address before connecting.
type SafeTransport struct {
	Base     *http.Transport
	Resolver Resolver
	dialer   net.Dialer
}

// NewSafeTransport wraps base, or a fresh transport when base is nil. The
// base transport's DialContext is replaced.
func NewSafeTransport(base *http.Transport, resolver Resolver) *SafeTransport {
	if base == nil {
		base = &http.Transport{}
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	st := &SafeTransport{Base: base, Resolver: resolver}
	base.DialContext = st.dialContext
	return st
}

func (st *SafeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return st.Base.RoundTrip(req)
}

func (st *SafeTransport) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ssrf: invalid address %q: %w", addr, err)
	}
	ips, err := resolveSafe(ctx, st.Resolver, host)
	if err != nil {
		return nil, err
	}
	return st.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

// CheckRedirect validates redirect targets and caps the redirect chain.
func CheckRedirect(maxRedirects int, resolver Resolver) func(req *http.Request, via []*http.Request) error {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, maxRedirects)
		}
		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrBlocked)
		}
		_, err := resolveSafe(req.Context(), resolver, host)
		return err
	}
}

// ValidateURL checks a configured URL up front so that a bad webhook target
// fails at startup instead of on the first alert. Only http and https are
// accepted.
func ValidateURL(ctx context.Context, rawURL string, resolver Resolver) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return types.NewAppError(types.ErrCodeValidationInvalidRequest, "webhook URL is not a valid absolute URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			"webhook URL must use http or https", nil, map[string]any{"scheme": u.Scheme})
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if _, err := resolveSafe(ctx, resolver, u.Hostname()); err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidRequest, "webhook URL targets a blocked address", err)
	}
	return nil
}

// NewSafeHTTPClient returns an http.Client for webhook delivery.
func NewSafeHTTPClient(timeout time.Duration, maxRedirects int) *http.Client {
	return &http.Client{
		Transport:     NewSafeTransport(nil, nil),
		Timeout:       timeout,
		CheckRedirect: CheckRedirect(maxRedirects, nil),
	}
}
