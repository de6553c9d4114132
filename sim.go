package nbody

import "github.com/chewxy/math32"

// BodyPool is the narrow "apply a function over a contiguous range" data
// parallel primitive the simulation driver depends on. It is implemented
// by package workerpool; Sim only ever needs this interface, so any
// fork-join pool can stand in for it.
type BodyPool interface {
	// ParallelRange partitions [0,n) into disjoint contiguous chunks and
	// calls fn(lo, hi) for each chunk, possibly from multiple goroutines,
	// returning only once every chunk has completed.
	ParallelRange(n int, fn func(lo, hi int))
}

// Sim is the CPU simulation driver: it owns the body array and the
// Barnes-Hut tree used to approximate far-field forces, and orchestrates
// accelerate -> integrate each step.
type Sim struct {
	// Size is the edge length of the cubic, toroidally-wrapped universe.
	Size float32
	// Bodies is the live body array. Sim.Accelerate writes Acc;
	// Sim.Integrate writes Pos and Vel. Never resized mid-step.
	Bodies []Body
	// Theta is the Barnes-Hut opening angle used by Accelerate.
	Theta float32
	// UseGPU selects the GPU backend for Update when GPU is non-nil.
	UseGPU bool
	// GPU is the optional compute backend mirroring Accelerate/Integrate.
	GPU GPUBackend

	tree *Tree
	pool BodyPool
}

// NewSim constructs a driver over bodies inside a cubic universe of the
// given edge length, using pool for data-parallel force evaluation and
// integration.
func NewSim(size float32, bodies []Body, pool BodyPool) *Sim {
	capacity := len(bodies) * 4
	if capacity < 64 {
		capacity = 64
	}
	return &Sim{
		Size:   size,
		Bodies: bodies,
		Theta:  DefaultTheta,
		tree:   NewTree(Bounds{Size: size}, capacity),
		pool:   pool,
	}
}

// Tree returns the driver's Barnes-Hut tree, for read-only use by a
// renderer or GPU upload path.
func (s *Sim) Tree() *Tree { return s.tree }

// Update advances the simulation by dt: Accelerate then Integrate. When
// UseGPU is set and GPU is non-nil, both phases run on the GPU backend
// instead, with the host applying the toroidal wrap after readback.
func (s *Sim) Update(dt float32) error {
	if len(s.Bodies) == 0 {
		return nil
	}
	if s.UseGPU && s.GPU != nil {
		return s.updateGPU(dt)
	}
	if err := s.Accelerate(); err != nil {
		return err
	}
	s.Integrate(dt)
	return nil
}

// updateGPU builds the tree on the host (tree construction is not
// mirrored on the GPU), uploads bodies and nodes, dispatches the
// accelerate and integrate kernels, reads bodies back, then wraps
// positions toroidally on the host, since the integrate kernel performs
// no wrap of its own.
func (s *Sim) updateGPU(dt float32) error {
	s.tree.ClearBounds(Bounds{Size: s.Size})
	if err := s.tree.Build(s.Bodies); err != nil {
		return err
	}
	if err := s.GPU.Upload(s.Bodies, s.tree.Nodes()); err != nil {
		return err
	}
	theta := s.Theta
	if theta == 0 {
		theta = DefaultTheta
	}
	if err := s.GPU.DispatchAccelerate(theta, G, ModeNLogN); err != nil {
		return err
	}
	if err := s.GPU.DispatchIntegrate(dt); err != nil {
		return err
	}
	if err := s.GPU.Readback(s.Bodies); err != nil {
		return err
	}
	half := s.Size / 2
	wrap := s.Size - epstol
	s.pool.ParallelRange(len(s.Bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.Bodies[i]
			b.Pos.X = wrapAxis(b.Pos.X, half, wrap)
			b.Pos.Y = wrapAxis(b.Pos.Y, half, wrap)
			b.Pos.Z = wrapAxis(b.Pos.Z, half, wrap)
		}
	})
	return nil
}

// Accelerate rebuilds the tree from the current body positions and, in
// parallel across the pool, computes each body's acceleration from a
// softened inverse-square sum over the tree's multipole summaries.
func (s *Sim) Accelerate() error {
	s.tree.ClearBounds(Bounds{Size: s.Size})
	if err := s.tree.Build(s.Bodies); err != nil {
		return err
	}
	theta := s.Theta
	if theta == 0 {
		theta = DefaultTheta
	}
	s.pool.ParallelRange(len(s.Bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.Bodies[i]
			var acc Vec3
			s.tree.Apply(b.Pos, theta, func(n *Node) {
				delta := n.COM.Sub(b.Pos)
				d2 := delta.Len2()
				if d2 < b.Radius*b.Radius {
					return // softened contact: skip self/overlapping mass
				}
				invD := 1 / math32.Sqrt(d2)
				acc = acc.Add(delta.Scale(G * n.Mass * invD * invD * invD))
			})
			b.Acc = acc
		}
	})
	return nil
}

// Integrate advances every body by dt using semi-implicit Euler (velocity
// updates from the just-computed acceleration, then position updates from
// the new velocity), followed by a toroidal wrap of the position.
func (s *Sim) Integrate(dt float32) {
	half := s.Size / 2
	wrap := s.Size - epstol
	s.pool.ParallelRange(len(s.Bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b := &s.Bodies[i]
			b.Vel = b.Vel.Add(b.Acc.Scale(dt))
			b.Pos = b.Pos.Add(b.Vel.Scale(dt))
			b.Pos.X = wrapAxis(b.Pos.X, half, wrap)
			b.Pos.Y = wrapAxis(b.Pos.Y, half, wrap)
			b.Pos.Z = wrapAxis(b.Pos.Z, half, wrap)
		}
	})
}

func wrapAxis(v, half, wrap float32) float32 {
	for v > half {
		v -= wrap
	}
	for v < -half {
		v += wrap
	}
	return v
}

// Visit calls f for every body, in parallel across the pool. Used for any
// per-body side effect that doesn't need to run in lock-step with
// accelerate/integrate.
func (s *Sim) Visit(f func(b *Body)) {
	s.pool.ParallelRange(len(s.Bodies), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(&s.Bodies[i])
		}
	})
}
