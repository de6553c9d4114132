//go:build tinygo || !cgo

package glcompute

import "github.com/nbodysim/nbody"

// Backend is the no-cgo stub: every method except Close reports
// nbody.ErrNoGPU; Close returns nil. It
// exists so callers can reference glcompute.Backend and glcompute.New
// unconditionally across build configurations.
type Backend struct{}

// New always fails on builds without cgo (or under tinygo), since the
// real backend requires linking against the platform's GL and GLFW
// libraries.
func New() (*Backend, error) {
	return nil, nbody.ErrNoGPU
}

func (b *Backend) Upload(bodies []nbody.Body, nodes []nbody.Node) error {
	return nbody.ErrNoGPU
}

func (b *Backend) DispatchAccelerate(theta, g float32, mode nbody.AccelerateMode) error {
	return nbody.ErrNoGPU
}

func (b *Backend) DispatchIntegrate(dt float32) error {
	return nbody.ErrNoGPU
}

func (b *Backend) Readback(dst []nbody.Body) error {
	return nbody.ErrNoGPU
}

func (b *Backend) Close() error {
	return nil
}
