package nbody

import "github.com/chewxy/math32"

// Physical and engine-wide constants. These are compile-time constants,
// never singletons, so tests can instantiate multiple independent sims
// without shared mutable state.
const (
	// G is the gravitational constant used throughout the engine. Chosen
	// as 1 so simulated units are dimensionless.
	G float32 = 1.0
	// SagittariusMass is a reference central mass, in solar masses, used
	// by demo scenes that model a galactic-core-like system.
	SagittariusMass float32 = 4.1e6
	// SolarMass is the reference unit mass.
	SolarMass float32 = 1.0
	// StarDensity is the reference density (mass per unit volume) used to
	// derive a body's radius from its mass via ComputeRadius.
	StarDensity float32 = 1e2
	// MaxBodies bounds the largest simulation this engine is designed for.
	MaxBodies = 1 << 20
	// DefaultTheta is the default Barnes-Hut opening-angle parameter.
	DefaultTheta float32 = 0.5
	// epstol guards badly conditioned denominators: normalizations,
	// near-zero bounds, coincident points.
	epstol float32 = 6e-7
)

// Pi is math32's single-precision pi, re-exported so callers building
// scenes don't need to import math32 themselves.
const Pi = math32.Pi

// ComputeRadius derives a body's radius from its mass and a reference
// density, treating the body as a uniform sphere: r = cbrt(3*pi*m / (4*rho)).
func ComputeRadius(mass, density float32) float32 {
	return math32.Pow(3*Pi*mass/(4*density), 1.0/3.0)
}
