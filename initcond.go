package nbody

import (
	"math/rand"

	"github.com/chewxy/math32"
)

// DiskArgs parametrizes Disk.
type DiskArgs struct {
	// CentralMass is the mass of the single heavy body placed at Center.
	CentralMass float32
	// StarMass is the mass assigned to every non-central body.
	StarMass float32
	// InnerRadius and OuterRadius bound the radial distribution of stars
	// around Center.
	InnerRadius, OuterRadius float32
	// Thickness scales the gaussian axial displacement of stars out of
	// the disk plane.
	Thickness float32
	// Axis is the disk's rotation axis; need not be normalized.
	Axis Vec3
	// Center is the disk's center, where the central mass is placed.
	Center Vec3
	// Vel is the disk's bulk velocity, added to every body after
	// per-star velocities are balanced.
	Vel Vec3
	// BulgeFraction, if > 0, places that fraction of the non-central
	// stars in a tighter, thicker central bulge before the remainder are
	// placed with the standard disk distribution.
	BulgeFraction float32
}

// Disk fills bodies[0:len(bodies)] with a self-consistent rotating disk:
// a heavy central mass followed by stars placed on an area-uniform radial
// distribution with gaussian vertical scatter, each given an
// approximately circular orbital velocity about the mass enclosed
// interior to its radius.
func Disk(bodies []Body, args DiskArgs, rng *rand.Rand) {
	n := len(bodies)
	if n == 0 {
		return
	}
	centralRadius := ComputeRadius(args.CentralMass, StarDensity)
	bodies[0] = Body{
		Pos:    args.Center,
		Mass:   args.CentralMass,
		Radius: centralRadius,
		Vel:    args.Vel,
	}
	if n == 1 {
		return
	}

	axis := args.Axis.Normalized()
	if axis.Len2() < epstol {
		axis = Vec3{Z: 1}
	}
	e0, e1 := orthonormalBasis(axis)

	nStars := n - 1
	bulgeCount := int(float32(nStars) * args.BulgeFraction)
	starRadius := ComputeRadius(args.StarMass, StarDensity)

	for i := 1; i < n; i++ {
		inBulge := i-1 < bulgeCount
		angle := (float32(i) / float32(nStars)) * 2 * Pi

		inner, outer := args.InnerRadius, args.OuterRadius
		thickness := args.Thickness
		if inBulge {
			outer = inner + (args.OuterRadius-args.InnerRadius)*0.3
			thickness *= 2.5
		}

		u := rng.Float32()
		dist := inner + math32.Sqrt(u)*(outer-inner)
		gauss := float32(rng.NormFloat64())
		disp := gauss * (outer - dist) / outer * thickness * centralRadius

		sin, cos := math32.Sincos(angle)
		localRadial := e0.Scale(sin).Add(e1.Scale(cos))
		pos := args.Center.Add(localRadial.Scale(dist)).Add(axis.Scale(disp))
		tangential := axis.Cross(localRadial)

		bodies[i] = Body{
			Pos:    pos,
			Mass:   args.StarMass,
			Radius: starRadius,
			Vel:    tangential, // placeholder direction, rescaled below
		}
	}

	balanceDiskVelocities(bodies, args.Vel)
}

// balanceDiskVelocities gives every non-central body (bodies[1:]) a
// circular-orbit speed about the mass enclosed interior to its radius,
// preserving the placeholder tangential direction already stored in Vel,
// then adds the disk's bulk velocity.
func balanceDiskVelocities(bodies []Body, bulkVel Vec3) {
	capacity := len(bodies) * 4
	if capacity < 64 {
		capacity = 64
	}
	bounds := Bounds{Size: enclosingSize(bodies)}
	t := NewTree(bounds, capacity)
	for t.Build(bodies) != nil {
		capacity *= 2
		t = NewTree(bounds, capacity)
	}

	for i := 1; i < len(bodies); i++ {
		b := &bodies[i]
		var mass float32
		var comWeighted Vec3
		t.Apply(b.Pos, DefaultTheta, func(n *Node) {
			comWeighted = comWeighted.Add(n.COM.Scale(n.Mass))
			mass += n.Mass
		})
		if mass <= 0 {
			b.Vel = bulkVel
			continue
		}
		com := comWeighted.Scale(1 / mass)
		dist := com.Sub(b.Pos).Len()
		if dist < epstol {
			b.Vel = bulkVel
			continue
		}
		speed := math32.Sqrt(G * mass / dist)
		dir := b.Vel.Normalized()
		if dir.Len2() < epstol {
			dir = Vec3{X: 1}
		}
		b.Vel = dir.Scale(speed).Add(bulkVel)
	}
}

// enclosingSize returns a cube edge length guaranteed to contain every
// body, with margin, for the throwaway tree used by velocity balancing.
func enclosingSize(bodies []Body) float32 {
	var maxAbs float32
	for i := range bodies {
		p := bodies[i].Pos
		for _, c := range [3]float32{p.X, p.Y, p.Z} {
			if c < 0 {
				c = -c
			}
			if c > maxAbs {
				maxAbs = c
			}
		}
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs * 4
}

// orthonormalBasis returns a pair of unit vectors (e0, e1) perpendicular
// to each other and to the unit vector n, using Duff et al.'s
// sign-copying construction to avoid the degeneracy a naive
// cross-with-up approach hits when n is near the up vector.
func orthonormalBasis(n Vec3) (e0, e1 Vec3) {
	sign := float32(1)
	if n.Z < 0 {
		sign = -1
	}
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	e0 = Vec3{X: 1 + sign*n.X*n.X*a, Y: sign * b, Z: -sign * n.X}
	e1 = Vec3{X: b, Y: sign + n.Y*n.Y*a, Z: -n.Y}
	return e0, e1
}

// CubeArgs parametrizes Cube.
type CubeArgs struct {
	// Center and Size describe the cube region bodies are scattered in.
	Center Vec3
	Size   float32
	// StarMass is the mass assigned to every body.
	StarMass float32
	// Vel is the shared bulk velocity every body is given.
	Vel Vec3
	// VelocityJitter scales a small random perturbation added to Vel per
	// body, so a cube scene isn't perfectly co-moving.
	VelocityJitter float32
}

// Cube fills bodies with uniformly random positions inside a cube region,
// all of the same mass, sharing a bulk velocity.
func Cube(bodies []Body, args CubeArgs, rng *rand.Rand) {
	radius := ComputeRadius(args.StarMass, StarDensity)
	half := args.Size / 2
	for i := range bodies {
		pos := Vec3{
			X: args.Center.X + (rng.Float32()*2-1)*half,
			Y: args.Center.Y + (rng.Float32()*2-1)*half,
			Z: args.Center.Z + (rng.Float32()*2-1)*half,
		}
		vel := args.Vel
		if args.VelocityJitter > 0 {
			vel = vel.Add(Vec3{
				X: (rng.Float32()*2 - 1) * args.VelocityJitter,
				Y: (rng.Float32()*2 - 1) * args.VelocityJitter,
				Z: (rng.Float32()*2 - 1) * args.VelocityJitter,
			})
		}
		bodies[i] = Body{Pos: pos, Mass: args.StarMass, Radius: radius, Vel: vel}
	}
}
