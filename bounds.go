package nbody

import "github.com/chewxy/math32"

// Bounds is an axis-aligned cube: a center plus a full edge length. Octree
// nodes use Bounds exclusively (never a general AABB) so that subdivision
// always produces eight equal child cubes with no gaps or overlap.
type Bounds struct {
	Center Vec3
	Size   float32
}

// Min returns the cube's minimum corner.
func (b Bounds) Min() Vec3 {
	h := b.Size / 2
	return Vec3{b.Center.X - h, b.Center.Y - h, b.Center.Z - h}
}

// Max returns the cube's maximum corner.
func (b Bounds) Max() Vec3 {
	h := b.Size / 2
	return Vec3{b.Center.X + h, b.Center.Y + h, b.Center.Z + h}
}

// Contains reports whether p lies within the closed cube.
func (b Bounds) Contains(p Vec3) bool {
	min, max := b.Min(), b.Max()
	return p.X >= min.X && p.X <= max.X &&
		p.Y >= min.Y && p.Y <= max.Y &&
		p.Z >= min.Z && p.Z <= max.Z
}

// Quadrant returns a 3-bit octant code for p relative to b's center. Bit i
// is set iff component i of p is less than the center's component i.
func (b Bounds) Quadrant(p Vec3) int {
	q := 0
	if p.X < b.Center.X {
		q |= 1
	}
	if p.Y < b.Center.Y {
		q |= 2
	}
	if p.Z < b.Center.Z {
		q |= 4
	}
	return q
}

// QuadrantBounds returns the child cube occupying octant q: half the edge
// length, center offset by a quarter edge along each axis toward q's side.
func (b Bounds) QuadrantBounds(q int) Bounds {
	half := b.Size / 2
	quarter := b.Size / 4
	c := b.Center
	if q&1 != 0 {
		c.X -= quarter
	} else {
		c.X += quarter
	}
	if q&2 != 0 {
		c.Y -= quarter
	} else {
		c.Y += quarter
	}
	if q&4 != 0 {
		c.Z -= quarter
	} else {
		c.Z += quarter
	}
	return Bounds{Center: c, Size: half}
}

// RayIntersect tests r against b using the slab method, returning whether
// an intersection occurred, the nearest hit point, and the hit parameter
// (distance along r.Dir, which need not be normalized). An origin inside
// the bounds is treated as an immediate hit at the origin with parameter
// zero; in that branch tNear/tFar are never consulted.
func (b Bounds) RayIntersect(r Ray) (hit bool, point Vec3, t float32) {
	if b.Contains(r.Origin) {
		return true, r.Origin, 0
	}
	min, max := b.Min(), b.Max()
	tNear := float32(math32.Inf(-1))
	tFar := float32(math32.Inf(1))
	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Index(axis)
		d := r.Dir.Index(axis)
		lo := min.Index(axis)
		hi := max.Index(axis)
		if math32.Abs(d) < epstol {
			if o < lo || o > hi {
				return false, Vec3{}, 0
			}
			continue
		}
		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar {
			return false, Vec3{}, 0
		}
	}
	if tFar < 0 {
		return false, Vec3{}, 0
	}
	hitT := tNear
	if hitT < 0 {
		hitT = tFar
	}
	return true, r.Origin.Add(r.Dir.Scale(hitT)), hitT
}
