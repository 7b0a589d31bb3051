package item

// none marks an absent arena link.
const none = -1

// Node is one symbol in a hierarchy. All relations are arena indices, never
// pointers, so trees of any depth carry no ownership cycles.
type Node struct {
	Text string
	Loc  Location

	Parent      int
	FirstChild  int
	LastChild   int
	NextSibling int
}

// Tree is an index-addressed arena of symbol nodes. Producers build one
// incrementally (parents before children) and flatten it into Results once
// the hierarchy is complete.
type Tree struct {
	nodes     []Node
	firstRoot int
	lastRoot  int
}

// NewTree returns an empty arena.
func NewTree() *Tree {
	return &Tree{firstRoot: none, lastRoot: none}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at index i.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

// Add appends a node under parent and returns its index. A parent of -1
// adds a root-level node. Siblings keep insertion order via the parent's
// last-child link.
func (t *Tree) Add(parent int, text string, loc Location) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		Text:        text,
		Loc:         loc,
		Parent:      parent,
		FirstChild:  none,
		LastChild:   none,
		NextSibling: none,
	})

	if parent == none {
		if t.firstRoot == none {
			t.firstRoot = idx
		} else {
			t.nodes[t.lastRoot].NextSibling = idx
		}
		t.lastRoot = idx
		return idx
	}

	p := &t.nodes[parent]
	if p.FirstChild == none {
		p.FirstChild = idx
	} else {
		t.nodes[p.LastChild].NextSibling = idx
	}
	p.LastChild = idx
	return idx
}

// Flatten walks the tree depth-first and returns one symbol Result per node,
// with Depth set to the nesting level. The walk is iterative; producer
// hierarchies can be arbitrarily deep.
func (t *Tree) Flatten() []Result {
	if t.firstRoot == none {
		return nil
	}

	type frame struct {
		idx   int
		depth int
	}

	results := make([]Result, 0, len(t.nodes))
	stack := []frame{{t.firstRoot, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[f.idx]
		results = append(results, Result{
			Kind:  KindSymbol,
			Text:  n.Text,
			Loc:   n.Loc,
			Depth: f.depth,
		})

		// Push the sibling first so the child is visited before it.
		if n.NextSibling != none {
			stack = append(stack, frame{n.NextSibling, f.depth})
		}
		if n.FirstChild != none {
			stack = append(stack, frame{n.FirstChild, f.depth + 1})
		}
	}
	return results
}
