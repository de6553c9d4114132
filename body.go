package nbody

// Body is a point mass. The field layout is deliberately three 4-float
// slots (pos+radius, vel+mass, acc+pad), each slot aligned the way GLSL's
// std430 layout expects a vec4, so the struct is directly consumable by
// the GPU compute kernels as an SSBO element.
//
// Body is created by the initial-condition generator or by the host, and
// is mutated only by Sim.Accelerate (writes Acc) and Sim.Integrate (writes
// Pos, Vel). It is never resized mid-step.
type Body struct {
	Pos    Vec3
	Radius float32
	Vel    Vec3
	Mass   float32
	Acc    Vec3
	_      float32 // pads Acc's vec3 slot to a full vec4, matching the GPU-side struct layout
}
