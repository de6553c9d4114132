package nbody

// AccelerateMode selects which accelerate compute kernel variant to
// dispatch: the tree-accelerated NlogN path, or the brute-force N²
// correctness oracle.
type AccelerateMode int32

const (
	// ModeNLogN replays the threaded tree traversal on the GPU, applying
	// the same opening criterion and softening rule as the CPU path.
	ModeNLogN AccelerateMode = iota
	// ModeN2 is a straight double loop over bodies, used as a
	// correctness oracle and in CPU/GPU parity tests.
	ModeN2
)

// PushConstants is the small per-dispatch parameter block shared by both
// compute kernels: a GPUBackend implementation fills one in from its
// DispatchAccelerate/DispatchIntegrate arguments and the fields double as
// the uniform values it actually uploads to the bound program (Theta, G,
// NumBodies, NumNodes and Mode for accelerate; Dt and NumBodies for
// integrate; fields a given kernel doesn't use are left zero).
type PushConstants struct {
	Dt        float32
	Theta     float32
	G         float32
	NumBodies int32
	NumNodes  int32
	Mode      AccelerateMode
}

// GPUBackend mirrors the CPU driver's Accelerate/Integrate operations on
// the GPU via two compute kernels bound to a shared Body/Node buffer
// layout (binding 0 = bodies, binding 1 = nodes). Host orchestration is:
// Upload, DispatchAccelerate, DispatchIntegrate, Readback, in that order,
// each step. Buffers grow on demand and are never shrunk.
type GPUBackend interface {
	// Upload copies bodies and nodes into the backend's storage buffers,
	// growing them first if the current allocation is too small.
	Upload(bodies []Body, nodes []Node) error
	// DispatchAccelerate runs the accelerate kernel selected by mode,
	// writing each body's Acc in the GPU-side buffer.
	DispatchAccelerate(theta, g float32, mode AccelerateMode) error
	// DispatchIntegrate runs the integrate kernel (semi-implicit Euler,
	// no toroidal wrap) over the GPU-side body buffer.
	DispatchIntegrate(dt float32) error
	// Readback maps the GPU-side body buffer back into dst.
	Readback(dst []Body) error
	// Close releases GPU resources (buffers, program). Safe to call once
	// the backend is no longer needed.
	Close() error
}
