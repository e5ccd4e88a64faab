package iptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyHostAndCIDR(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		family   Family
		wantLen  int
		wantText string
	}{
		{"v4 host", "192.0.2.1", V4, 32, "192.0.2.1/32"},
		{"v6 host", "2001:db8::1", V6, 128, "2001:db8::1/128"},
		{"v4 cidr", "192.0.2.0/24", V4, 24, "192.0.2.0/24"},
		{"v6 cidr", "2001:db8::/32", V6, 32, "2001:db8::/32"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net, err := ParseKey(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.family, net.Family)
			assert.Equal(t, tc.wantLen, net.PrefixLen)
			assert.Equal(t, tc.wantText, net.String())
		})
	}
}

func TestParseKeyRejectsGarbageAndHostBits(t *testing.T) {
	cases := []string{"", "not-an-ip", "192.0.2.1/33", "192.0.2.1/24"}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := ParseKey(in)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestContains(t *testing.T) {
	outer := mustNet(t, "10.0.0.0/8")
	inner := mustNet(t, "10.1.2.3/32")
	outsider := mustNet(t, "11.0.0.0/8")

	assert.True(t, Contains(outer, inner))
	assert.False(t, Contains(inner, outer))
	assert.False(t, Contains(outer, outsider))
	assert.True(t, Contains(outer, outer))
}

func TestContainsRejectsCrossFamily(t *testing.T) {
	v4 := mustNet(t, "10.0.0.0/8")
	v6 := mustNet(t, "::/0")
	assert.False(t, Contains(v6, v4))
	assert.False(t, Contains(v4, v6))
}

func TestSupernet(t *testing.T) {
	host := mustNet(t, "192.168.1.200/32")
	super := Supernet(host, 24)
	assert.Equal(t, "192.168.1.0/24", super.String())
	assert.True(t, Contains(super, host))
}

func TestCommonPrefix(t *testing.T) {
	a := mustNet(t, "192.168.0.1/32")
	b := mustNet(t, "192.168.1.1/32")
	cp := commonPrefix(a, b)
	assert.Equal(t, 23, cp.PrefixLen)
	assert.True(t, Contains(cp, a))
	assert.True(t, Contains(cp, b))
}

func mustNet(t *testing.T, s string) Network {
	t.Helper()
	net, err := ParseKey(s)
	require.NoError(t, err)
	return net
}
