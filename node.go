package nbody

// Node is one entry in a flattened Barnes-Hut octree arena. Nodes refer to
// each other exclusively by index into the arena slice, never by pointer,
// so the same layout uploads directly to a GPU storage buffer.
//
//   - Bounds is the node's cube region.
//   - COM is the center of mass of everything in the node's subtree.
//   - Mass is the total mass in the subtree (0 for an empty leaf).
//   - Next is the index to jump to when this subtree is skipped during a
//     threaded traversal (a sibling, or an ancestor's sibling); 0 at the
//     end of the walk.
//   - Children is the index of the node's first child; its siblings
//     occupy Children..Children+7 in octant order. Zero means "leaf".
type Node struct {
	Bounds   Bounds
	COM      Vec3
	Mass     float32
	Next     int32
	Children int32
	pad0     int32
	pad1     int32
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.Children == 0
}

// IsEmpty reports whether n's subtree carries no mass.
func (n *Node) IsEmpty() bool {
	return n.Mass == 0
}
