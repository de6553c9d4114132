package nbody

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

func TestTreeBuildEmpty(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 64)
	if err := tr.Build(nil); err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if !tr.nodes[0].IsEmpty() {
		t.Error("root should be empty after building zero bodies")
	}
}

func TestTreeBuildSingleBody(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 64)
	bodies := []Body{{Pos: Vec3{X: 1, Y: 1, Z: 1}, Mass: 5}}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	root := tr.nodes[0]
	if root.Mass != 5 {
		t.Errorf("root mass = %v, want 5", root.Mass)
	}
	if root.COM != bodies[0].Pos {
		t.Errorf("root COM = %+v, want %+v", root.COM, bodies[0].Pos)
	}
	if !root.IsLeaf() {
		t.Error("root should remain a leaf for a single body")
	}
}

func TestTreeBuildOppositeOctants(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 64)
	bodies := []Body{
		{Pos: Vec3{X: -3, Y: -3, Z: -3}, Mass: 1},
		{Pos: Vec3{X: 3, Y: 3, Z: 3}, Mass: 1},
	}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	root := tr.nodes[0]
	if root.Mass != 2 {
		t.Errorf("root mass = %v, want 2", root.Mass)
	}
	want := Vec3{}
	if math32.Abs(root.COM.X-want.X) > 1e-4 || math32.Abs(root.COM.Y-want.Y) > 1e-4 {
		t.Errorf("root COM = %+v, want ~origin", root.COM)
	}
	if root.IsLeaf() {
		t.Fatal("root should have split for bodies in opposite octants")
	}
	qA := root.Bounds.Quadrant(bodies[0].Pos)
	qB := root.Bounds.Quadrant(bodies[1].Pos)
	if qA == qB {
		t.Fatal("test bodies landed in the same octant, test is broken")
	}
	childA := tr.nodes[root.Children+int32(qA)]
	childB := tr.nodes[root.Children+int32(qB)]
	if childA.Mass != 1 || childA.COM != bodies[0].Pos {
		t.Errorf("child A = %+v, want mass 1 at %+v", childA, bodies[0].Pos)
	}
	if childB.Mass != 1 || childB.COM != bodies[1].Pos {
		t.Errorf("child B = %+v, want mass 1 at %+v", childB, bodies[1].Pos)
	}
}

func TestTreeBuildCoincidentPoints(t *testing.T) {
	// Coincident points subdivide until the bounds drop below epstol: about
	// 23 levels of 8 nodes inside a single octant's range.
	tr := NewTree(Bounds{Size: 10}, 2048)
	p := Vec3{X: 1, Y: 1, Z: 1}
	bodies := []Body{
		{Pos: p, Mass: 1},
		{Pos: p, Mass: 2},
		{Pos: p, Mass: 3},
	}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	root := tr.nodes[0]
	if root.Mass != 6 {
		t.Errorf("root mass = %v, want 6 (coincident points must not loop forever or drop mass)", root.Mass)
	}
}

func TestTreeBuildCapacityExceeded(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, numStages+1)
	bodies := make([]Body, 64)
	rng := rand.New(rand.NewSource(1))
	for i := range bodies {
		bodies[i] = Body{
			Pos:  Vec3{X: rng.Float32() * 8, Y: rng.Float32() * 8, Z: rng.Float32() * 8},
			Mass: 1,
		}
	}
	if err := tr.Build(bodies); err == nil {
		t.Error("expected ErrCapacityExceeded for an undersized arena, got nil")
	}
}

func TestTreeApplyFarFieldUsesSummary(t *testing.T) {
	tr := NewTree(Bounds{Size: 100}, 256)
	bodies := []Body{
		{Pos: Vec3{X: -1}, Mass: 1},
		{Pos: Vec3{X: 1}, Mass: 1},
	}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	far := Vec3{X: 1000}
	var visited int
	var totalMass float32
	tr.Apply(far, 0.5, func(n *Node) {
		visited++
		totalMass += n.Mass
	})
	if visited != 1 {
		t.Errorf("Apply from far away visited %d summary nodes, want 1 (should use the root's merged summary)", visited)
	}
	if totalMass != 2 {
		t.Errorf("visited summary mass = %v, want 2", totalMass)
	}
}

func TestTreeApplyLargeThetaDescendsToLeaves(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 256)
	bodies := []Body{
		{Pos: Vec3{X: -3, Y: -3, Z: -3}, Mass: 1},
		{Pos: Vec3{X: 3, Y: 3, Z: 3}, Mass: 1},
	}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	var visited int
	var totalMass float32
	tr.Apply(bodies[0].Pos, 1e6, func(n *Node) {
		visited++
		totalMass += n.Mass
	})
	if totalMass != 2 {
		t.Errorf("total visited mass = %v, want 2 regardless of theta", totalMass)
	}
	if visited < 2 {
		t.Errorf("a theta this large should force the walk down to individual leaves, got %d visited node(s)", visited)
	}
}

func TestTreeBarnesHutApproximatesBruteForce(t *testing.T) {
	const n = 300
	rng := rand.New(rand.NewSource(7))
	bodies := make([]Body, n)
	for i := range bodies {
		bodies[i] = Body{
			Pos: Vec3{
				X: (rng.Float32()*2 - 1) * 40,
				Y: (rng.Float32()*2 - 1) * 40,
				Z: (rng.Float32()*2 - 1) * 40,
			},
			Mass:   1 + rng.Float32(),
			Radius: 0.01,
		}
	}
	tr := NewTree(Bounds{Size: 200}, n*16)
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}

	accelDirect := func(self int) Vec3 {
		var acc Vec3
		p := bodies[self].Pos
		r := bodies[self].Radius
		for j := range bodies {
			if j == self {
				continue
			}
			delta := bodies[j].Pos.Sub(p)
			d2 := delta.Len2()
			if d2 < r*r {
				continue
			}
			invD := 1 / math32.Sqrt(d2)
			acc = acc.Add(delta.Scale(G * bodies[j].Mass * invD * invD * invD))
		}
		return acc
	}
	accelTree := func(self int) Vec3 {
		var acc Vec3
		p := bodies[self].Pos
		r := bodies[self].Radius
		// A node is summarized once d2 > (size*theta)^2, so a larger theta
		// opens more nodes; theta 2 summarizes only nodes at least twice
		// their edge length away.
		tr.Apply(p, 2, func(node *Node) {
			delta := node.COM.Sub(p)
			d2 := delta.Len2()
			if d2 < r*r {
				return
			}
			invD := 1 / math32.Sqrt(d2)
			acc = acc.Add(delta.Scale(G * node.Mass * invD * invD * invD))
		})
		return acc
	}

	var maxRelErr float32
	for i := 0; i < n; i += 7 {
		want := accelDirect(i)
		got := accelTree(i)
		diff := got.Sub(want).Len()
		denom := want.Len()
		if denom < 1e-6 {
			continue
		}
		relErr := diff / denom
		if relErr > maxRelErr {
			maxRelErr = relErr
		}
	}
	const tol = 0.15
	if maxRelErr > tol {
		t.Errorf("max relative error between Barnes-Hut and brute force = %v, want <= %v", maxRelErr, tol)
	}
}

func TestTreeQueryVisitsIntersectedBranches(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 256)
	bodies := []Body{
		{Pos: Vec3{X: -3, Y: -3, Z: -3}, Mass: 1},
		{Pos: Vec3{X: 3, Y: 3, Z: 3}, Mass: 1},
	}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	r := Ray{Origin: Vec3{X: -10, Y: -3, Z: -3}, Dir: Vec3{X: 1}}
	var hitLeaf bool
	tr.Query(r, func(n *Node) bool {
		if n.IsLeaf() && n.Mass > 0 && n.COM == bodies[0].Pos {
			hitLeaf = true
		}
		return true
	})
	if !hitLeaf {
		t.Error("Query along a ray through body[0]'s octant never visited its leaf")
	}
}

func TestTreeClearResetsArena(t *testing.T) {
	tr := NewTree(Bounds{Size: 10}, 64)
	bodies := []Body{{Pos: Vec3{X: 1}, Mass: 1}}
	if err := tr.Build(bodies); err != nil {
		t.Fatalf("Build: %v", err)
	}
	tr.Clear()
	if tr.nodes[0].Mass != 0 {
		t.Error("Clear should reset the root to empty")
	}
	if tr.Bounds().Size != 10 {
		t.Error("Clear should preserve the last-set bounds")
	}
}
