package iptree

import "fmt"

// Limit is one checkpoint in a PrefixLimits configuration: at prefix
// length Depth, more than Count distinct leaf descendants below it
// triggers aggregation there. Count == 0 disables aggregation at that
// depth.
type Limit struct {
	Depth int
	Count int
}

// PrefixLimits is an ordered sequence of checkpoints, strictly
// increasing by Depth. The first entry must be {0, 0} and the last
// must be {width(family), 0}; interior entries with Count == 0 are
// legal and simply mark a depth that never aggregates.
type PrefixLimits []Limit

// Validate checks that pl is well-formed for an address family of the
// given width (32 or 128).
func (pl PrefixLimits) Validate(width int) error {
	if len(pl) < 2 {
		return misconfiguredf("prefix_limits", "must have at least the two sentinel entries")
	}
	if pl[0].Depth != 0 || pl[0].Count != 0 {
		return misconfiguredf(fmt.Sprintf("%+v", pl[0]), "first entry must be {0, 0}")
	}
	last := pl[len(pl)-1]
	if last.Depth != width || last.Count != 0 {
		return misconfiguredf(fmt.Sprintf("%+v", last), fmt.Sprintf("last entry must be {%d, 0}", width))
	}
	for i := 1; i < len(pl); i++ {
		if pl[i].Depth <= pl[i-1].Depth {
			return misconfiguredf(fmt.Sprintf("%+v", pl[i]), "depths must be strictly increasing")
		}
		if pl[i].Depth < 0 || pl[i].Depth > width {
			return misconfiguredf(fmt.Sprintf("%+v", pl[i]), "depth out of range")
		}
		if pl[i].Count < 0 {
			return misconfiguredf(fmt.Sprintf("%+v", pl[i]), "count must be non-negative")
		}
	}
	return nil
}

// DefaultV4Limits is the IPv4 analogue of DefaultV6Limits, scaling the
// same checkpoint fractions of address width (0.25, 0.375, 0.4375,
// 0.5, 0.625, 0.75, 0.875, 1.0) onto 32 bits and carrying over the
// same count sequence at each fraction.
var DefaultV4Limits = PrefixLimits{
	{Depth: 0, Count: 0},
	{Depth: 8, Count: 0},
	{Depth: 12, Count: 50},
	{Depth: 14, Count: 10},
	{Depth: 16, Count: 5},
	{Depth: 20, Count: 4},
	{Depth: 24, Count: 3},
	{Depth: 28, Count: 2},
	{Depth: 32, Count: 0},
}

// DefaultV6Limits is the default checkpoint sequence for IPv6 trees.
// The leading (0, 0) sentinel is required of every PrefixLimits;
// between 0 and 32 nothing can aggregate either way since the first
// real checkpoint already carries Count 0.
var DefaultV6Limits = PrefixLimits{
	{Depth: 0, Count: 0},
	{Depth: 32, Count: 0},
	{Depth: 48, Count: 50},
	{Depth: 56, Count: 10},
	{Depth: 64, Count: 5},
	{Depth: 80, Count: 4},
	{Depth: 96, Count: 3},
	{Depth: 112, Count: 2},
	{Depth: 128, Count: 0},
}

func defaultLimitsFor(f Family) PrefixLimits {
	if f == V4 {
		return DefaultV4Limits
	}
	return DefaultV6Limits
}
