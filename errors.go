package nbody

import "errors"

// Result kinds for the engine's fallible operations. Arithmetic
// degeneracies (near-zero separations, degenerate bounds) are not errors;
// they're handled in-line by the softening rule and the guarded reciprocal.
var (
	// ErrCapacityExceeded is returned when a tree node arena runs out of
	// room during subdivision. The caller undersized Tree capacity.
	ErrCapacityExceeded = errors.New("nbody: tree node arena exhausted")
	// ErrGPUDeviceLost is the result kind for a GPU device that is no
	// longer usable. The glcompute backend does not return it: a failure
	// during dispatch surfaces as the GL error glgl reports.
	ErrGPUDeviceLost = errors.New("nbody: gpu device lost")
	// ErrShaderCompile is returned when a compute shader fails to compile
	// or link.
	ErrShaderCompile = errors.New("nbody: compute shader failed to compile")
	// ErrNoGPU is returned by every glcompute entry point other than
	// Backend.Close when built without cgo (or under tinygo), where no GPU
	// backend exists.
	ErrNoGPU = errors.New("nbody: gpu backend unavailable (build without cgo)")
)
