package iptree

// Tree is the dual-family façade: one aggregating FamilyTree for IPv4
// and one for IPv6, routed to by the family of whatever address or
// network a caller hands in. There is no cross-family aggregation or
// lookup; the two families never share a node.
type Tree struct {
	v4 *FamilyTree
	v6 *FamilyTree
}

// Options configures a Tree's two underlying FamilyTrees. A zero
// Options uses DefaultV4Limits/DefaultV6Limits and no hooks for both
// families. V4Limits/V6Limits default independently if left nil.
type Options struct {
	V4Limits PrefixLimits
	V6Limits PrefixLimits
	Hooks    Hooks
}

// NewTree constructs a Tree from opts.
func NewTree(opts Options) (*Tree, error) {
	v4, err := NewFamilyTree(V4, opts.V4Limits, opts.Hooks)
	if err != nil {
		return nil, err
	}
	v6, err := NewFamilyTree(V6, opts.V6Limits, opts.Hooks)
	if err != nil {
		return nil, err
	}
	return &Tree{v4: v4, v6: v6}, nil
}

// familyTree returns the FamilyTree for net's family.
func (t *Tree) familyTree(family Family) *FamilyTree {
	if family == V4 {
		return t.v4
	}
	return t.v6
}

// V4 returns the underlying IPv4 FamilyTree.
func (t *Tree) V4() *FamilyTree { return t.v4 }

// V6 returns the underlying IPv6 FamilyTree.
func (t *Tree) V6() *FamilyTree { return t.v6 }

// Add parses s as a host address and records a hit against it.
func (t *Tree) Add(s string) (Hit, error) {
	net, err := ParseKey(s)
	if err != nil {
		return Hit{}, err
	}
	return t.AddNetwork(net)
}

// AddNetwork records a hit against net, which must be a full host
// address (net.PrefixLen == net.Family.Width()).
func (t *Tree) AddNetwork(net Network) (Hit, error) {
	return t.familyTree(net.Family).Add(net)
}

// Get parses s and looks it up, per FamilyTree.Find.
func (t *Tree) Get(s string) (*Node, error) {
	net, err := ParseKey(s)
	if err != nil {
		return nil, err
	}
	return t.GetNetwork(net)
}

// GetNetwork looks up target, per FamilyTree.Find.
func (t *Tree) GetNetwork(target Network) (*Node, error) {
	return t.familyTree(target.Family).Find(target)
}

// Delete parses s and removes it, per FamilyTree.Remove.
func (t *Tree) Delete(s string) error {
	net, err := ParseKey(s)
	if err != nil {
		return err
	}
	return t.DeleteNetwork(net)
}

// DeleteNetwork removes target, per FamilyTree.Remove.
func (t *Tree) DeleteNetwork(target Network) error {
	return t.familyTree(target.Family).Remove(target)
}

// Leafs returns a fresh, restartable sequence of every leaf and
// aggregate across both families: the v6 tree's leaves first, then
// the v4 tree's.
func (t *Tree) Leafs() <-chan *Node {
	ch := make(chan *Node)
	go func() {
		defer close(ch)
		for n := range t.v6.Leafs() {
			ch <- n
		}
		for n := range t.v4.Leafs() {
			ch <- n
		}
	}()
	return ch
}
