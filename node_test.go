package iptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIsLeaf(t *testing.T) {
	n := &Node{network: mustNet(t, "10.0.0.0/8")}
	assert.True(t, n.isLeaf())
	assert.Equal(t, 0, n.childCount())

	child := &Node{network: mustNet(t, "10.1.0.0/16"), parent: n}
	n.children[1] = child
	assert.False(t, n.isLeaf())
	assert.Equal(t, 1, n.childCount())
	assert.Equal(t, 1, child.childBit())
}

func TestNodeString(t *testing.T) {
	n := &Node{network: mustNet(t, "2001:db8::/112")}
	assert.Equal(t, "<IPNode: 2001:db8::/112>", n.String())
}

func TestNodeAccessors(t *testing.T) {
	n := &Node{
		network:    mustNet(t, "192.0.2.0/24"),
		hitCount:   7,
		aggregated: true,
		data:       "payload",
	}
	assert.Equal(t, "192.0.2.0/24", n.Network().String())
	assert.Equal(t, uint64(7), n.HitCount())
	assert.True(t, n.Aggregated())
	assert.Equal(t, "payload", n.Data())
}
