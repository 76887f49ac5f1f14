package hostfuncs

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"syscall"
)

// NetfilterOption configures an AddressFilter.
type NetfilterOption func(*netfilterConfig)

type netfilterConfig struct {
	allowlist      []netip.Prefix
	blocklist      []netip.Prefix
	allowedPorts   []int
	blockPrivate   bool
	blockLoopback  bool
	blockLinkLocal bool
	blockMulticast bool
}

// defaultNetfilterConfig blocks every address class a plugin could use to
// reach the host's own network.
func defaultNetfilterConfig() netfilterConfig {
	return netfilterConfig{
		blockPrivate:   true,
		blockLoopback:  true,
		blockLinkLocal: true,
		blockMulticast: true,
	}
}

// WithAllowlist exempts the given CIDRs or single addresses from every other
// rule. Entries that do not parse are ignored.
func WithAllowlist(networks ...string) NetfilterOption {
	return func(c *netfilterConfig) {
		c.allowlist = parsePrefixes(networks)
	}
}

// WithBlocklist always rejects the given CIDRs or single addresses.
func WithBlocklist(networks ...string) NetfilterOption {
	return func(c *netfilterConfig) {
		c.blocklist = parsePrefixes(networks)
	}
}

// WithBlockPrivate toggles blocking of RFC 1918 and ULA addresses.
func WithBlockPrivate(block bool) NetfilterOption {
	return func(c *netfilterConfig) { c.blockPrivate = block }
}

// WithBlockLoopback toggles blocking of 127.0.0.0/8 and ::1.
func WithBlockLoopback(block bool) NetfilterOption {
	return func(c *netfilterConfig) { c.blockLoopback = block }
}

// WithBlockLinkLocal toggles blocking of 169.254.0.0/16 and fe80::/10.
func WithBlockLinkLocal(block bool) NetfilterOption {
	return func(c *netfilterConfig) { c.blockLinkLocal = block }
}

// WithAllowedPorts limits connections to the given ports. Empty allows all.
func WithAllowedPorts(ports ...int) NetfilterOption {
	return func(c *netfilterConfig) { c.allowedPorts = ports }
}

// AddressFilter decides which resolved addresses outbound connections may
// reach. It runs at dial time, after DNS resolution, so redirects and
// rebinding hostnames go through the same check as the first request.
type AddressFilter struct {
	cfg netfilterConfig
}

// NewAddressFilter builds a filter. With no options it blocks loopback,
// private, link-local, multicast and unspecified addresses.
func NewAddressFilter(opts ...NetfilterOption) *AddressFilter {
	cfg := defaultNetfilterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AddressFilter{cfg: cfg}
}

// Check reports why addr:port may not be reached, or nil if it may.
func (f *AddressFilter) Check(addr netip.Addr, port int) error {
	addr = addr.Unmap()
	if len(f.cfg.allowedPorts) > 0 && !slices.Contains(f.cfg.allowedPorts, port) {
		return blocked(addr, port, "port not allowed")
	}
	if containsAddr(f.cfg.allowlist, addr) {
		return nil
	}
	if containsAddr(f.cfg.blocklist, addr) {
		return blocked(addr, port, "address in blocklist")
	}

	switch {
	case addr.IsUnspecified():
		return blocked(addr, port, "unspecified address")
	case f.cfg.blockLoopback && addr.IsLoopback():
		return blocked(addr, port, "loopback address")
	case f.cfg.blockPrivate && addr.IsPrivate():
		return blocked(addr, port, "private address")
	case f.cfg.blockLinkLocal && (addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast()):
		return blocked(addr, port, "link-local address")
	case f.cfg.blockMulticast && addr.IsMulticast():
		return blocked(addr, port, "multicast address")
	}
	return nil
}

// CheckAddress checks a resolved "ip:port" address as passed to a dialer.
func (f *AddressFilter) CheckAddress(address string) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAddressBlocked, address, err)
	}
	return f.Check(ap.Addr(), int(ap.Port()))
}

// DialContext returns a dial function for http.Transport that refuses
// connections the filter rejects.
func (f *AddressFilter) DialContext(d *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := *d
	dialer.Control = func(_, address string, _ syscall.RawConn) error {
		return f.CheckAddress(address)
	}
	return dialer.DialContext
}

func blocked(addr netip.Addr, port int, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrAddressBlocked, netip.AddrPortFrom(addr, uint16(port)), reason) //nolint:gosec // G115: ports come from a parsed AddrPort
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parsePrefixes(networks []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(networks))
	for _, n := range networks {
		if p, err := netip.ParsePrefix(n); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(n); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return out
}
