// Package target parses scan targets: a single IPv4 address or a CIDR range.
package target

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidTarget wraps every parse failure.
var ErrInvalidTarget = errors.New("invalid target")

// Target is an IPv4 network. A bare address is a /32 with Single set.
type Target struct {
	Prefix netip.Prefix
	Single bool
	raw    string
}

// Parse accepts "a.b.c.d" or "a.b.c.d/n" with n in 0..32. Host bits in a
// prefix are masked off.
func Parse(s string) (Target, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	if !strings.Contains(raw, "/") {
		addr, err := netip.ParseAddr(raw)
		if err != nil || !addr.Is4() {
			return Target{}, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidTarget, raw)
		}
		return Target{Prefix: netip.PrefixFrom(addr, 32), Single: true, raw: raw}, nil
	}

	prefix, err := netip.ParsePrefix(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, raw, err)
	}
	if !prefix.Addr().Is4() {
		return Target{}, fmt.Errorf("%w: %q is not an IPv4 network", ErrInvalidTarget, raw)
	}
	return Target{Prefix: prefix.Masked(), raw: raw}, nil
}

// String returns the target as given by the user.
func (t Target) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.Prefix.String()
}

// Size is the number of usable host addresses.
func (t Target) Size() uint64 {
	bits := t.Prefix.Bits()
	switch {
	case bits >= 31:
		return uint64(1) << (32 - bits)
	default:
		return (uint64(1) << (32 - bits)) - 2
	}
}

// Each calls fn for every usable host address in ascending order until fn
// returns false. Network and broadcast addresses are skipped for prefixes up
// to /30; /31 yields both addresses.
func (t Target) Each(fn func(netip.Addr) bool) {
	bits := t.Prefix.Bits()
	first := toUint32(t.Prefix.Addr())
	last := first | (^uint32(0) >> bits)
	if bits <= 30 {
		first++
		last--
	}
	for n := first; ; n++ {
		if !fn(fromUint32(n)) {
			return
		}
		if n == last {
			return
		}
	}
}

// Hosts collects Each into a slice. Use it only for small ranges.
func (t Target) Hosts() []netip.Addr {
	hosts := make([]netip.Addr, 0, t.Size())
	t.Each(func(a netip.Addr) bool {
		hosts = append(hosts, a)
		return true
	})
	return hosts
}

func toUint32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func fromUint32(n uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
