package iptree

import (
	"encoding/binary"
	"math/bits"
	"net/netip"
)

// Family tags a Network/Node as belonging to the IPv4 or IPv6 address
// space. Bit operations are always family-scoped; mixing is rejected
// by Contains.
type Family uint8

const (
	V4 Family = iota
	V6
)

// Width returns the number of significant bits in an address of this
// family: 32 for V4, 128 for V6.
func (f Family) Width() int {
	if f == V4 {
		return 32
	}
	return 128
}

func (f Family) String() string {
	if f == V4 {
		return "v4"
	}
	return "v6"
}

// addr128 is a fixed 128-bit address store shared by both families.
// IPv4 addresses occupy the top 32 bits of hi, left-aligned, so that
// bit-position arithmetic is identical regardless of family; only
// the family's Width bounds which positions are meaningful.
type addr128 struct {
	hi, lo uint64
}

func bitAtRaw(a addr128, pos int) int {
	if pos < 64 {
		return int(a.hi>>(63-pos)) & 1
	}
	return int(a.lo>>(63-(pos-64))) & 1
}

// maskTo zeroes every bit at position >= n, keeping the high n bits.
func maskTo(a addr128, n int) addr128 {
	switch {
	case n <= 0:
		return addr128{}
	case n >= 128:
		return a
	case n < 64:
		return addr128{hi: a.hi & (^uint64(0) << (64 - n))}
	case n == 64:
		return addr128{hi: a.hi}
	default:
		loBits := n - 64
		return addr128{hi: a.hi, lo: a.lo & (^uint64(0) << (64 - loBits))}
	}
}

func maskEqual(a, b addr128, n int) bool {
	return maskTo(a, n) == maskTo(b, n)
}

// divergingBit returns the position of the most significant bit at
// which a and b differ, or 128 if they are identical.
func divergingBit(a, b addr128) int {
	if xh := a.hi ^ b.hi; xh != 0 {
		return bits.LeadingZeros64(xh)
	}
	if xl := a.lo ^ b.lo; xl != 0 {
		return 64 + bits.LeadingZeros64(xl)
	}
	return 128
}

func addr128From4(b [4]byte) addr128 {
	v := binary.BigEndian.Uint32(b[:])
	return addr128{hi: uint64(v) << 32}
}

func addr128From16(b [16]byte) addr128 {
	return addr128{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

func (a addr128) as4() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a.hi>>32))
	return b
}

func (a addr128) as16() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], a.hi)
	binary.BigEndian.PutUint64(b[8:16], a.lo)
	return b
}

// Network is a (family, bits, prefix length) triple. Only the high
// PrefixLen bits of the address are significant; the rest must be
// zero, which callers get for free since every Network is built
// through Supernet or parsing, both of which mask.
type Network struct {
	Family    Family
	PrefixLen int
	bits      addr128
}

// Equal reports whether two networks have identical family, prefix
// length and significant bits.
func (n Network) Equal(o Network) bool {
	return n.Family == o.Family && n.PrefixLen == o.PrefixLen && n.bits == o.bits
}

// Contains reports whether outer is a prefix of inner: same family,
// outer's prefix length no longer than inner's, and their high
// outer.PrefixLen bits equal.
func Contains(outer, inner Network) bool {
	if outer.Family != inner.Family {
		return false
	}
	if outer.PrefixLen > inner.PrefixLen {
		return false
	}
	return maskEqual(outer.bits, inner.bits, outer.PrefixLen)
}

// BitAt returns the value (0 or 1) of the i-th bit of net's address,
// counted from the most significant end.
func BitAt(net Network, i int) int {
	return bitAtRaw(net.bits, i)
}

// Supernet returns net masked down to newLen significant bits. newLen
// must be <= net.PrefixLen.
func Supernet(net Network, newLen int) Network {
	return Network{Family: net.Family, PrefixLen: newLen, bits: maskTo(net.bits, newLen)}
}

// commonPrefix returns the longest shared-prefix network of two
// same-family networks, used to find where a new routing node needs
// to branch.
func commonPrefix(a, b Network) Network {
	lim := a.PrefixLen
	if b.PrefixLen < lim {
		lim = b.PrefixLen
	}
	pos := divergingBit(a.bits, b.bits)
	if pos > lim {
		pos = lim
	}
	return Supernet(a, pos)
}

func (n Network) toPrefix() netip.Prefix {
	if n.Family == V4 {
		return netip.PrefixFrom(netip.AddrFrom4(n.bits.as4()), n.PrefixLen)
	}
	return netip.PrefixFrom(netip.AddrFrom16(n.bits.as16()), n.PrefixLen)
}

// String renders net as CIDR text, e.g. "192.0.2.0/24" or "2001:db8::/32".
func (n Network) String() string {
	return n.toPrefix().String()
}

// ParseKey parses a bare address ("192.0.2.1", "2001:db8::1") into a
// host Network, or a CIDR ("2001:db8::/112") into a Network at that
// prefix length. CIDR input with non-zero host bits is rejected.
func ParseKey(s string) (Network, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return networkFromPrefix(s, p)
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return networkFromAddr(a), nil
	}
	return Network{}, malformedf(s, "not a valid IP address or CIDR network")
}

func networkFromPrefix(raw string, p netip.Prefix) (Network, error) {
	if p != p.Masked() {
		return Network{}, malformedf(raw, "CIDR has non-zero host bits")
	}
	addr := p.Addr()
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	if addr.Is4() {
		return Network{Family: V4, PrefixLen: p.Bits(), bits: addr128From4(addr.As4())}, nil
	}
	return Network{Family: V6, PrefixLen: p.Bits(), bits: addr128From16(addr.As16())}, nil
}

func networkFromAddr(a netip.Addr) Network {
	if a.Is4In6() {
		a = a.Unmap()
	}
	if a.Is4() {
		return Network{Family: V4, PrefixLen: 32, bits: addr128From4(a.As4())}
	}
	return Network{Family: V6, PrefixLen: 128, bits: addr128From16(a.As16())}
}

func malformedf(raw, detail string) error {
	return &Error{Kind: KindMalformed, Subject: raw, Detail: detail}
}
