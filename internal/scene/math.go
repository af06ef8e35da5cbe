package scene

import "math"

type Vec3 struct{ X, Y, Z float32 }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float32   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}
func (a Vec3) Len() float32 { return float32(math.Sqrt(float64(a.Dot(a)))) }

// Quat is a rotation quaternion, W the scalar part.
type Quat struct{ X, Y, Z, W float32 }

func IdentityQuat() Quat { return Quat{W: 1} }

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis Vec3, angle float32) Quat {
	l := axis.Len()
	if l == 0 {
		return IdentityQuat()
	}
	s := float32(math.Sin(float64(angle)/2)) / l
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, float32(math.Cos(float64(angle) / 2))}
}

// Mul returns q*r: r applied first, then q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

func (q Quat) Normalize() Quat {
	l := float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Transform is a decomposed affine transform: uniform scale, then rotation,
// then translation.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    float32
}

func Identity() Transform {
	return Transform{Rotation: IdentityQuat(), Scale: 1}
}

// At returns an identity transform translated to p.
func At(x, y, z float32) Transform {
	t := Identity()
	t.Position = Vec3{x, y, z}
	return t
}

// Point maps p from the local space of t into its parent space.
func (t Transform) Point(p Vec3) Vec3 {
	return t.Rotation.Rotate(p.Scale(t.Scale)).Add(t.Position)
}

// Compose returns the transform equivalent to applying child and then
// parent, i.e. child's local space expressed in parent's parent space.
func Compose(parent, child Transform) Transform {
	return Transform{
		Position: parent.Point(child.Position),
		Rotation: parent.Rotation.Mul(child.Rotation),
		Scale:    parent.Scale * child.Scale,
	}
}

// Matrix returns t as a column-major 4x4 matrix.
func (t Transform) Matrix() [16]float32 {
	q := t.Rotation
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z
	s := t.Scale
	return [16]float32{
		(1 - 2*(yy+zz)) * s, 2 * (xy + wz) * s, 2 * (xz - wy) * s, 0,
		2 * (xy - wz) * s, (1 - 2*(xx+zz)) * s, 2 * (yz + wx) * s, 0,
		2 * (xz + wy) * s, 2 * (yz - wx) * s, (1 - 2*(xx+yy)) * s, 0,
		t.Position.X, t.Position.Y, t.Position.Z, 1,
	}
}
