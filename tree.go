package nbody

import (
	"fmt"
	"sync"
)

// numStages is the fan-out of the staged parallel tree build (§4.C: "8-way
// stage-then-merge scheme").
const numStages = 8

// Tree is a flattened Barnes-Hut octree. Nodes live in a single contiguous
// arena and refer to each other exclusively by index (Node.Next,
// Node.Children), never by pointer, so the arena uploads directly to a GPU
// storage buffer and so insertion never invalidates a live reference.
type Tree struct {
	nodes []Node
	root  Bounds
	// stage holds numStages private, reusable staging arenas used by Build.
	// Sized the same as nodes for simplicity: memory is cheap relative to
	// correctness, and these buffers are reused across every Build call.
	stage [numStages][]Node
}

// NewTree preallocates node storage for capacity nodes. The guideline is
// 4x the maximum expected body count.
func NewTree(bounds Bounds, capacity int) *Tree {
	if capacity < numStages+1 {
		capacity = numStages + 1
	}
	t := &Tree{
		nodes: make([]Node, capacity),
	}
	for i := range t.stage {
		t.stage[i] = make([]Node, capacity)
	}
	t.ClearBounds(bounds)
	return t
}

// Bounds returns the tree's root (universe) bounds.
func (t *Tree) Bounds() Bounds { return t.root }

// Nodes returns the node arena for read-only use by a renderer or a GPU
// upload path. Indices beyond what the last Build actually used are
// unreachable garbage from prior builds; nothing reachable from node 0
// via Next/Children ever points at them.
func (t *Tree) Nodes() []Node { return t.nodes }

// Clear wipes all nodes, keeping the existing root bounds.
func (t *Tree) Clear() { t.ClearBounds(t.root) }

// ClearBounds wipes all nodes and replaces the root bounds.
func (t *Tree) ClearBounds(bounds Bounds) {
	t.root = bounds
	t.nodes[0] = Node{Bounds: bounds}
}

// accumulate folds mass m at position p into node n's (mass, center of
// mass) running aggregate.
func accumulate(n *Node, p Vec3, m float32) {
	newMass := n.Mass + m
	if newMass > 0 {
		n.COM = n.COM.Scale(n.Mass).Add(p.Scale(m)).Scale(1 / newMass)
	}
	n.Mass = newMass
}

// insertPoint inserts mass m at position p into the subtree rooted at
// nodes[root], using *used as a bump allocator bounded by capEnd (the
// exclusive end of this range). It implements the per-range insertion
// algorithm of spec §4.C: descend while occupied, subdivide on collision,
// coalesce coincident points once bounds have shrunk below epsilon.
func insertPoint(nodes []Node, used *int, capEnd int, root int32, p Vec3, m float32) error {
	idx := root
	for {
		n := &nodes[idx]
		if !n.IsLeaf() {
			accumulate(n, p, m)
			idx = n.Children + int32(n.Bounds.Quadrant(p))
			continue
		}
		if n.Mass == 0 {
			n.Mass = m
			n.COM = p
			return nil
		}
		if n.Bounds.Size < epstol {
			// Coincident-point terminator: bounds too small to usefully
			// subdivide further, just merge mass at this node.
			accumulate(n, p, m)
			return nil
		}
		if *used+8 > capEnd {
			return ErrCapacityExceeded
		}
		existingPos, existingMass := n.COM, n.Mass
		existingNext := n.Next
		childStart := int32(*used)
		*used += 8
		for q := 0; q < 8; q++ {
			c := &nodes[childStart+int32(q)]
			*c = Node{Bounds: n.Bounds.QuadrantBounds(q)}
			if q < 7 {
				c.Next = childStart + int32(q) + 1
			} else {
				c.Next = existingNext
			}
		}
		n.Children = childStart
		accumulate(n, p, m)

		qExisting := n.Bounds.Quadrant(existingPos)
		qNew := n.Bounds.Quadrant(p)
		existingChild := &nodes[childStart+int32(qExisting)]
		existingChild.Mass = existingMass
		existingChild.COM = existingPos
		if qExisting == qNew {
			// Re-enter the loop at the shared child: it's now occupied by
			// the existing point, so the next iteration will subdivide
			// again if p still lands in the same octant at the next
			// level down.
			idx = childStart + int32(qExisting)
			continue
		}
		newChild := &nodes[childStart+int32(qNew)]
		newChild.Mass = m
		newChild.COM = p
		return nil
	}
}

// walkAndInsert enumerates every leaf body in the threaded subtree that
// starts at nodes[start] and exits at index stop (the value that node
// start's own Next field would carry were it treated as a single summary
// node — the threaded-tree invariant guarantees following Next/Children
// from start always reaches stop after visiting every descendant exactly
// once), inserting each one into dst's range rooted at dstRoot.
func walkAndInsert(src []Node, start, stop int, dst []Node, used *int, capEnd int, dstRoot int32) error {
	i := start
	for i != stop {
		n := &src[i]
		if n.Mass == 0 {
			i = int(n.Next)
			continue
		}
		if n.IsLeaf() {
			if err := insertPoint(dst, used, capEnd, dstRoot, n.COM, n.Mass); err != nil {
				return err
			}
			i = int(n.Next)
			continue
		}
		i = int(n.Children)
	}
	return nil
}

// Build clears and rebuilds the tree from bodies using an 8-way staged
// parallel construction: each of numStages goroutines inserts a disjoint
// contiguous slice of bodies into its own private staging arena (all
// spanning the full root bounds), then numStages goroutines merge those
// staged subtrees into the eight octant roots at indices 1..8, each octant
// allocating its subtree from its own disjoint range of the real arena.
func (t *Tree) Build(bodies []Body) error {
	t.ClearBounds(t.root)
	n := len(bodies)
	if n == 0 {
		return nil
	}

	chunk := (n + numStages - 1) / numStages
	var wg sync.WaitGroup
	stageErrs := make([]error, numStages)
	for s := 0; s < numStages; s++ {
		lo := s * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(s, lo, hi int) {
			defer wg.Done()
			arena := t.stage[s]
			arena[0] = Node{Bounds: t.root}
			used := 1
			for i := lo; i < hi; i++ {
				b := &bodies[i]
				if err := insertPoint(arena, &used, len(arena), 0, b.Pos, b.Mass); err != nil {
					stageErrs[s] = fmt.Errorf("build stage %d (bodies [%d,%d)): %w", s, lo, hi, err)
					return
				}
			}
		}(s, lo, hi)
	}
	wg.Wait()
	for _, err := range stageErrs {
		if err != nil {
			return err
		}
	}

	t.nodes[0] = Node{Bounds: t.root, Children: 1}
	capTotal := len(t.nodes)
	rangeSize := (capTotal - 1 - numStages) / numStages
	if rangeSize < 1 {
		return ErrCapacityExceeded
	}

	mergeErrs := make([]error, numStages)
	octMass := make([]float32, numStages)
	octCOM := make([]Vec3, numStages)
	var wg2 sync.WaitGroup
	for q := 0; q < numStages; q++ {
		lo := 1 + numStages + q*rangeSize
		hi := lo + rangeSize
		nextLink := int32(q + 2)
		if q == numStages-1 {
			hi = capTotal
			nextLink = 0
		}
		wg2.Add(1)
		go func(q, lo, hi int, nextLink int32) {
			defer wg2.Done()
			root := int32(1 + q)
			t.nodes[root] = Node{Bounds: t.root.QuadrantBounds(q), Next: nextLink}
			used := lo
			for s := 0; s < numStages; s++ {
				staged := t.stage[s]
				sroot := &staged[0]
				if sroot.Mass == 0 {
					continue
				}
				if sroot.IsLeaf() {
					if t.root.Quadrant(sroot.COM) != q {
						continue
					}
					if err := insertPoint(t.nodes, &used, hi, root, sroot.COM, sroot.Mass); err != nil {
						mergeErrs[q] = fmt.Errorf("merge octant %d (nodes [%d,%d)): %w", q, lo, hi, err)
						return
					}
					continue
				}
				childIdx := int(sroot.Children) + q
				stop := int(staged[childIdx].Next)
				if err := walkAndInsert(staged, childIdx, stop, t.nodes, &used, hi, root); err != nil {
					mergeErrs[q] = fmt.Errorf("merge octant %d (nodes [%d,%d)): %w", q, lo, hi, err)
					return
				}
			}
			octMass[q] = t.nodes[root].Mass
			octCOM[q] = t.nodes[root].COM
		}(q, lo, hi, nextLink)
	}
	wg2.Wait()
	for _, err := range mergeErrs {
		if err != nil {
			return err
		}
	}

	for q := 0; q < numStages; q++ {
		accumulate(&t.nodes[0], octCOM[q], octMass[q])
	}
	return nil
}

// farEnough implements the Barnes-Hut opening criterion: a node of edge
// length s at squared distance d2 from point is summarizable when
// d2 > (s*theta)^2.
func farEnough(n *Node, point Vec3, theta float32) bool {
	d2 := n.COM.Sub(point).Len2()
	st := n.Bounds.Size * theta
	return d2 > st*st
}

// Apply invokes visit for every node that is an acceptable Barnes-Hut
// multipole summary relative to point under the given opening angle,
// using the threaded Next/Children links so the walk needs no stack and
// no recursion. Every body's contribution is visited exactly once.
func (t *Tree) Apply(point Vec3, theta float32, visit func(n *Node)) {
	i := 0
	for {
		n := &t.nodes[i]
		switch {
		case n.Mass == 0:
			i = int(n.Next)
		case n.IsLeaf():
			visit(n)
			i = int(n.Next)
		case farEnough(n, point, theta):
			visit(n)
			i = int(n.Next)
		default:
			i = int(n.Children)
		}
		if i == 0 {
			return
		}
	}
}

// Query performs a depth-first traversal of nodes whose bounds intersect
// r, calling visit for each. visit may return false to stop the traversal
// early.
func (t *Tree) Query(r Ray, visit func(n *Node) bool) {
	t.queryNode(0, r, visit)
}

func (t *Tree) queryNode(idx int, r Ray, visit func(n *Node) bool) bool {
	n := &t.nodes[idx]
	if hit, _, _ := n.Bounds.RayIntersect(r); !hit {
		return true
	}
	if !visit(n) {
		return false
	}
	if !n.IsLeaf() {
		for q := 0; q < 8; q++ {
			if !t.queryNode(int(n.Children)+q, r, visit) {
				return false
			}
		}
	}
	return true
}
