// Package glcompute is the GPU compute backend: it mirrors the CPU
// accelerate/integrate step on the GPU via two compute shaders operating
// on the same Body/Node buffer layout used by the CPU tree.
package glcompute

import _ "embed"

//go:embed shaders/accelerate.comp.glsl
var accelerateSource string

//go:embed shaders/integrate.comp.glsl
var integrateSource string
