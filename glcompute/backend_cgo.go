//go:build !tinygo && cgo

package glcompute

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"

	"github.com/nbodysim/nbody"
)

const workgroupSize = 256

// Backend is the cgo GPU compute implementation of nbody.GPUBackend. It
// owns a pair of growable SSBOs (bodies at binding 0, nodes at binding 1)
// and the two compiled compute programs, and talks to the GL context
// brought up by New.
type Backend struct {
	terminate func()

	progAccelerate glgl.Program
	progIntegrate  glgl.Program

	ssboBodies uint32
	ssboNodes  uint32
	bodiesCap  int
	nodesCap   int
	numBodies  int
	numNodes   int
}

// New brings up a headless GL context and compiles the accelerate and
// integrate compute programs. The returned Backend must be closed with
// Close once the caller is done with it.
func New() (*Backend, error) {
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "nbody-compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		return nil, err
	}
	progAccelerate, err := glgl.CompileProgram(glgl.ShaderSource{Compute: accelerateSource})
	if err != nil {
		terminate()
		return nil, fmt.Errorf("%w: %s", nbody.ErrShaderCompile, err)
	}
	progIntegrate, err := glgl.CompileProgram(glgl.ShaderSource{Compute: integrateSource})
	if err != nil {
		terminate()
		return nil, fmt.Errorf("%w: %s", nbody.ErrShaderCompile, err)
	}
	return &Backend{
		terminate:      terminate,
		progAccelerate: progAccelerate,
		progIntegrate:  progIntegrate,
	}, nil
}

// Upload grows the body and node SSBOs if needed and copies bodies and
// nodes into them.
func (b *Backend) Upload(bodies []nbody.Body, nodes []nbody.Node) error {
	if len(bodies) == 0 {
		return nil
	}
	if err := b.growBodies(len(bodies)); err != nil {
		return err
	}
	if err := b.growNodes(len(nodes)); err != nil {
		return err
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssboBodies)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(bodies)*elemSize[nbody.Body](), unsafe.Pointer(&bodies[0]))
	if len(nodes) > 0 {
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssboNodes)
		gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(nodes)*elemSize[nbody.Node](), unsafe.Pointer(&nodes[0]))
	}
	b.numBodies = len(bodies)
	b.numNodes = len(nodes)
	return glgl.Err()
}

func (b *Backend) growBodies(n int) error {
	if n <= b.bodiesCap {
		return nil
	}
	if b.ssboBodies != 0 {
		gl.DeleteBuffers(1, &b.ssboBodies)
	}
	b.ssboBodies = createSSBO(n*elemSize[nbody.Body](), 0, gl.DYNAMIC_DRAW)
	if b.ssboBodies == 0 {
		return glErrOrMessage("allocating bodies SSBO")
	}
	b.bodiesCap = n
	return nil
}

func (b *Backend) growNodes(n int) error {
	if n <= b.nodesCap {
		return nil
	}
	if b.ssboNodes != 0 {
		gl.DeleteBuffers(1, &b.ssboNodes)
	}
	b.ssboNodes = createSSBO(n*elemSize[nbody.Node](), 1, gl.DYNAMIC_DRAW)
	if b.ssboNodes == 0 {
		return glErrOrMessage("allocating nodes SSBO")
	}
	b.nodesCap = n
	return nil
}

// DispatchAccelerate runs the accelerate compute kernel over the
// uploaded bodies and nodes, selected by mode, writing each body's Acc.
func (b *Backend) DispatchAccelerate(theta, g float32, mode nbody.AccelerateMode) error {
	if b.numBodies == 0 {
		return nil
	}
	pc := nbody.PushConstants{
		Theta:     theta,
		G:         g,
		NumBodies: int32(b.numBodies),
		NumNodes:  int32(b.numNodes),
		Mode:      mode,
	}
	prog := b.progAccelerate
	prog.Bind()
	defer prog.Unbind()
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, b.ssboBodies)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 1, b.ssboNodes)
	if err := setUniforms(prog, map[string]float32{
		"uTheta\x00":     pc.Theta,
		"uG\x00":         pc.G,
		"uNumBodies\x00": float32(pc.NumBodies),
		"uNumNodes\x00":  float32(pc.NumNodes),
		"uMode\x00":      float32(pc.Mode),
	}); err != nil {
		return err
	}
	return dispatch(b.numBodies)
}

// DispatchIntegrate runs the integrate compute kernel (semi-implicit
// Euler, no wrap) over the uploaded bodies.
func (b *Backend) DispatchIntegrate(dt float32) error {
	if b.numBodies == 0 {
		return nil
	}
	pc := nbody.PushConstants{
		Dt:        dt,
		NumBodies: int32(b.numBodies),
	}
	prog := b.progIntegrate
	prog.Bind()
	defer prog.Unbind()
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, b.ssboBodies)
	if err := setUniforms(prog, map[string]float32{
		"uDt\x00":        pc.Dt,
		"uNumBodies\x00": float32(pc.NumBodies),
	}); err != nil {
		return err
	}
	return dispatch(b.numBodies)
}

func dispatch(numBodies int) error {
	groups := (numBodies + workgroupSize - 1) / workgroupSize
	gl.DispatchCompute(uint32(groups), 1, 1)
	if err := glgl.Err(); err != nil {
		return err
	}
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	return glgl.Err()
}

// setUniforms uploads a PushConstants field set one at a time via
// SetUniformf, the only uniform setter glgl.Program confirms.
func setUniforms(prog glgl.Program, values map[string]float32) error {
	for name, v := range values {
		loc, err := prog.UniformLocation(name)
		if err != nil {
			return err
		}
		if err := prog.SetUniformf(loc, v); err != nil {
			return err
		}
	}
	return nil
}

// Readback maps the bodies SSBO and copies it into dst.
func (b *Backend) Readback(dst []nbody.Body) error {
	if len(dst) == 0 {
		return nil
	}
	var p runtime.Pinner
	p.Pin(&dst[0])
	defer p.Unpin()
	return copySSBO(dst, b.ssboBodies)
}

// Close deletes the GPU buffers and programs and tears down the GL
// context. Safe to call once.
func (b *Backend) Close() error {
	if b.ssboBodies != 0 {
		gl.DeleteBuffers(1, &b.ssboBodies)
		b.ssboBodies = 0
	}
	if b.ssboNodes != 0 {
		gl.DeleteBuffers(1, &b.ssboNodes)
		b.ssboNodes = 0
	}
	b.progAccelerate.Delete()
	b.progIntegrate.Delete()
	if b.terminate != nil {
		b.terminate()
	}
	return nil
}

func createSSBO(size int, base uint32, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO[T any](dst []T, ssbo uint32) error {
	bufSize := elemSize[T]() * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO during readback")
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gpuBytes := unsafe.Slice((*byte)(ptr), bufSize)
	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dst[0])), bufSize)
	copy(dstBytes, gpuBytes)
	return glgl.Err()
}

func elemSize[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func glErrOrMessage(defaultMsg string) error {
	err := glgl.Err()
	if err == nil {
		return errors.New(defaultMsg)
	}
	return fmt.Errorf("%s: %w", defaultMsg, err)
}
