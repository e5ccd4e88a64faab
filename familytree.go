package iptree

// Hit is the result of a successful Add: the node the hit ultimately
// landed on, plus any leaves that disappeared or appeared during the
// call. LeafsRemoved is empty unless aggregation fired, in which case
// it lists the collapsed leaves and LeafsAdded holds exactly the one
// new aggregate. Without aggregation, LeafsAdded holds the new leaf
// when one was created and is empty when an existing leaf or
// aggregate only had its count incremented.
type Hit struct {
	Node         *Node
	LeafsAdded   []*Node
	LeafsRemoved []*Node
}

// FamilyTree is the aggregating prefix trie for a single address
// family. The zero value is not usable; construct with
// NewFamilyTree.
type FamilyTree struct {
	family Family
	limits PrefixLimits
	hooks  Hooks
	root   *Node

	inHook         bool
	misuseDetected bool
}

// NewFamilyTree constructs a FamilyTree for the given family. A nil
// limits uses that family's default (DefaultV4Limits/DefaultV6Limits).
func NewFamilyTree(family Family, limits PrefixLimits, hooks Hooks) (*FamilyTree, error) {
	if limits == nil {
		limits = defaultLimitsFor(family)
	}
	if err := limits.Validate(family.Width()); err != nil {
		return nil, err
	}
	root := &Node{network: Network{Family: family, PrefixLen: 0}}
	return &FamilyTree{family: family, limits: limits, hooks: hooks, root: root}, nil
}

// Family returns the address family this tree was built for.
func (ft *FamilyTree) Family() Family { return ft.family }

// Root returns the tree's root node. The root always exists, has
// PrefixLen 0, and is never removed.
func (ft *FamilyTree) Root() *Node { return ft.root }

func (ft *FamilyTree) reentrant() bool {
	if ft.inHook {
		ft.misuseDetected = true
		return true
	}
	return false
}

func (ft *FamilyTree) callInitial() any {
	ft.inHook = true
	defer func() { ft.inHook = false }()
	return ft.hooks.initial()
}

func (ft *FamilyTree) callAdd(n *Node) {
	ft.inHook = true
	defer func() { ft.inHook = false }()
	ft.hooks.add(n)
}

func (ft *FamilyTree) callAggregate(into *Node, from []*Node) {
	ft.inHook = true
	defer func() { ft.inHook = false }()
	ft.hooks.aggregate(into, from)
}

// Add records a hit against addr, which must be a full host address
// of this tree's family (Network.PrefixLen == family.Width()).
func (ft *FamilyTree) Add(addr Network) (Hit, error) {
	if ft.reentrant() {
		return Hit{}, hookMisusef("Add invoked reentrantly from a hook")
	}
	if addr.Family != ft.family {
		return Hit{}, malformedf(addr.String(), "wrong address family for this tree")
	}
	if addr.PrefixLen != ft.family.Width() {
		return Hit{}, malformedf(addr.String(), "Add requires a full host address")
	}

	hit := ft.add(addr)
	if ft.misuseDetected {
		ft.misuseDetected = false
		return hit, hookMisusef("a hook attempted to call back into the tree during Add")
	}
	return hit, nil
}

func (ft *FamilyTree) add(addr Network) Hit {
	leaf, isNew, shortCircuit := ft.insertLeaf(addr)
	if shortCircuit != nil {
		shortCircuit.hitCount++
		ft.callAdd(shortCircuit)
		return Hit{Node: shortCircuit}
	}

	if isNew {
		leaf.hitCount = 1
		leaf.data = ft.callInitial()
	} else {
		leaf.hitCount++
		ft.callAdd(leaf)
	}

	if agg, removed := ft.checkAggregation(addr); agg != nil {
		return Hit{Node: agg, LeafsRemoved: removed, LeafsAdded: []*Node{agg}}
	}

	var added []*Node
	if isNew {
		added = []*Node{leaf}
	}
	return Hit{Node: leaf, LeafsAdded: added}
}

// insertLeaf descends from the root following addr's bits, creating
// whatever routing node(s) and leaf are needed. It returns the
// existing aggregate as shortCircuit without creating anything if one
// already covers addr.
func (ft *FamilyTree) insertLeaf(addr Network) (target *Node, isNew bool, shortCircuit *Node) {
	cur := ft.root
	for {
		if cur.aggregated && Contains(cur.network, addr) {
			return nil, false, cur
		}
		if cur.network.Equal(addr) {
			return cur, false, nil
		}

		bit := BitAt(addr, cur.network.PrefixLen)
		child := cur.children[bit]
		if child == nil {
			leaf := &Node{network: addr, parent: cur}
			cur.children[bit] = leaf
			return leaf, true, nil
		}
		if child.aggregated && Contains(child.network, addr) {
			return nil, false, child
		}
		if child.network.Equal(addr) {
			return child, false, nil
		}

		div := commonPrefix(child.network, addr)
		if div.PrefixLen == child.network.PrefixLen {
			// addr continues on down through child.
			cur = child
			continue
		}

		// addr diverges from child partway down; split with a new
		// routing node at the point of divergence.
		pathNode := &Node{network: div, parent: cur}
		cur.children[bit] = pathNode
		childBit := BitAt(child.network, div.PrefixLen)
		pathNode.children[childBit] = child
		child.parent = pathNode

		leafBit := BitAt(addr, div.PrefixLen)
		leaf := &Node{network: addr, parent: pathNode}
		pathNode.children[leafBit] = leaf
		return leaf, true, nil
	}
}

// checkAggregation walks the configured checkpoints shallowest first
// and aggregates at the first one whose distinct-leaf count under
// Supernet(addr, depth) exceeds its limit. Aggregating at the
// shallowest exceeded depth always subsumes any deeper depth that
// would also have exceeded its own limit, so no further checks are
// needed once one fires.
func (ft *FamilyTree) checkAggregation(addr Network) (*Node, []*Node) {
	for _, lim := range ft.limits {
		if lim.Count <= 0 {
			continue
		}
		target := Supernet(addr, lim.Depth)
		leaves := ft.collectLeaves(target)
		if len(leaves) > lim.Count {
			agg := ft.aggregateAt(target, leaves)
			return agg, leaves
		}
	}
	return nil, nil
}

// collectLeaves returns every leaf/aggregate node whose network is
// contained within target.
func (ft *FamilyTree) collectLeaves(target Network) []*Node {
	var out []*Node
	collectLeavesRec(ft.root, target, &out)
	return out
}

func collectLeavesRec(node *Node, target Network, out *[]*Node) {
	if node == nil {
		return
	}
	if node.network.PrefixLen >= target.PrefixLen {
		if !Contains(target, node.network) {
			return
		}
		if node.isLeaf() {
			*out = append(*out, node)
			return
		}
		collectLeavesRec(node.children[0], target, out)
		collectLeavesRec(node.children[1], target, out)
		return
	}
	// node is shallower than target; it's only relevant if its own
	// prefix still covers target's address bits.
	if !Contains(node.network, target) {
		return
	}
	collectLeavesRec(node.children[BitAt(target, node.network.PrefixLen)], target, out)
}

// locateAnchor finds the single node that is the root of target's
// entire subtree, the node to detach and replace with an aggregate.
func locateAnchor(root *Node, target Network) (node, parent *Node, bit int) {
	cur := root
	for cur != nil {
		if cur.network.PrefixLen >= target.PrefixLen {
			if Contains(target, cur.network) {
				return cur, parent, bit
			}
			return nil, parent, bit
		}
		if !Contains(cur.network, target) {
			return nil, parent, bit
		}
		parent = cur
		bit = BitAt(target, cur.network.PrefixLen)
		cur = cur.children[bit]
	}
	return nil, parent, bit
}

// aggregateAt replaces the subtree rooted at target's anchor with a
// single new aggregate leaf that absorbs the collapsed leaves' hit
// counts.
func (ft *FamilyTree) aggregateAt(target Network, leaves []*Node) *Node {
	anchor, parent, bit := locateAnchor(ft.root, target)

	var total uint64
	for _, l := range leaves {
		total += l.hitCount
	}

	agg := &Node{network: target, aggregated: true, hitCount: total, parent: parent}
	agg.data = ft.callInitial()
	ft.callAggregate(agg, leaves)

	if parent == nil {
		// Only possible if target is the whole address space, which
		// the (0,0) sentinel (limit 0) prevents from ever aggregating.
		ft.root = agg
	} else {
		parent.children[bit] = agg
	}

	if anchor != nil {
		detachSubtree(anchor)
	}
	return agg
}

func detachSubtree(n *Node) {
	n.parent = nil
	for i := range n.children {
		if n.children[i] != nil {
			detachSubtree(n.children[i])
			n.children[i] = nil
		}
	}
}

// Find returns the deepest node whose network is a prefix of target
// (at a prefix length <= target's), provided that node is a leaf,
// aggregate, or an exact match for target. The root matches only as
// an exact match, even when it has no children. It returns
// ErrNotFound if no such node exists.
func (ft *FamilyTree) Find(target Network) (*Node, error) {
	if ft.reentrant() {
		return nil, hookMisusef("Find invoked reentrantly from a hook")
	}
	if target.Family != ft.family {
		return nil, notFoundf(target.String(), "wrong address family for this tree")
	}

	cur := ft.root
	var best *Node
	for cur != nil {
		if !Contains(cur.network, target) {
			break
		}
		if (cur.isLeaf() && cur != ft.root) || cur.network.Equal(target) {
			best = cur
		}
		if cur.network.Equal(target) {
			break
		}
		cur = cur.children[BitAt(target, cur.network.PrefixLen)]
	}
	if best == nil {
		return nil, notFoundf(target.String(), "no covering leaf or exact match")
	}
	return best, nil
}

// Remove deletes the node with exactly this network, then prunes any
// ancestor chain of routing nodes left childless by the removal (but
// never the root). It returns ErrNotFound if no node matches target
// exactly. No hooks are invoked.
func (ft *FamilyTree) Remove(target Network) error {
	if ft.reentrant() {
		return hookMisusef("Remove invoked reentrantly from a hook")
	}
	if target.Family != ft.family {
		return notFoundf(target.String(), "wrong address family for this tree")
	}

	cur := ft.root
	for cur != nil {
		if cur.network.Equal(target) {
			if cur == ft.root {
				return notFoundf(target.String(), "the root cannot be removed")
			}
			parent := cur.parent
			bit := cur.childBit()
			parent.children[bit] = nil
			cur.parent = nil
			ft.pruneEmptyAncestors(parent)
			return nil
		}
		if target.PrefixLen <= cur.network.PrefixLen {
			break
		}
		cur = cur.children[BitAt(target, cur.network.PrefixLen)]
	}
	return notFoundf(target.String(), "network not present")
}

func (ft *FamilyTree) pruneEmptyAncestors(n *Node) {
	for n != nil && n != ft.root && n.childCount() == 0 {
		parent := n.parent
		bit := n.childBit()
		parent.children[bit] = nil
		n.parent = nil
		n = parent
	}
}

// Leafs returns a fresh, restartable, finite sequence of every leaf
// and aggregate currently in the tree, depth-first with the right
// child (bit 1) visited before the left (bit 0).
func (ft *FamilyTree) Leafs() <-chan *Node {
	ch := make(chan *Node)
	go func() {
		defer close(ch)
		walkLeafs(ft.root, ch)
	}()
	return ch
}

func walkLeafs(n *Node, ch chan<- *Node) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		ch <- n
		return
	}
	walkLeafs(n.children[1], ch)
	walkLeafs(n.children[0], ch)
}
