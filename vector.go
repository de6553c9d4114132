package nbody

import "github.com/chewxy/math32"

// Vec3 is a three-component single-precision vector.
type Vec3 struct {
	X, Y, Z float32
}

// Index returns component i (0=X, 1=Y, 2=Z). Panics on out-of-range i,
// same as a plain array index would.
func (v Vec3) Index(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		panic("nbody: Vec3 index out of range")
	}
}

// Add returns v+u.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

// Sub returns v-u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Scale returns v scaled by f.
func (v Vec3) Scale(f float32) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

// Div returns v with every component divided by f.
func (v Vec3) Div(f float32) Vec3 {
	return Vec3{v.X / f, v.Y / f, v.Z / f}
}

// Mul returns the componentwise product of v and u.
func (v Vec3) Mul(u Vec3) Vec3 {
	return Vec3{v.X * u.X, v.Y * u.Y, v.Z * u.Z}
}

// Dot returns the dot product of v and u.
func (v Vec3) Dot(u Vec3) float32 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Cross returns the cross product v x u.
func (v Vec3) Cross(u Vec3) Vec3 {
	return Vec3{
		v.Y*u.Z - v.Z*u.Y,
		v.Z*u.X - v.X*u.Z,
		v.X*u.Y - v.Y*u.X,
	}
}

// Len2 returns the squared magnitude of v.
func (v Vec3) Len2() float32 {
	return v.Dot(v)
}

// Len returns the magnitude of v.
func (v Vec3) Len() float32 {
	return math32.Sqrt(v.Len2())
}

// Normalized returns v scaled to unit length. If v is near zero it returns
// the zero vector; use InvLenOr if a fallback magnitude is needed.
func (v Vec3) Normalized() Vec3 {
	l2 := v.Len2()
	if l2 < epstol {
		return Vec3{}
	}
	return v.Scale(1 / math32.Sqrt(l2))
}

// InvLenOr returns 1/|v|, or fallback if v is near the zero vector. This is
// the guarded reciprocal magnitude spec'd for denominators that can
// legitimately be driven to zero by coincident points or empty nodes.
func (v Vec3) InvLenOr(fallback float32) float32 {
	l2 := v.Len2()
	if l2 < epstol {
		return fallback
	}
	return 1 / math32.Sqrt(l2)
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}
