package spin

import "math"

// Vector3 is a cartesian 3-vector used for spins, lattice positions and
// interaction normals.
type Vector3 [3]float64

var (
	UnitX = Vector3{1, 0, 0}
	UnitY = Vector3{0, 1, 0}
	UnitZ = Vector3{0, 0, 1}
)

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vector3) Dot(o Vector3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vector3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The second result is false when
// v has zero (or non-finite) length, in which case v is returned unchanged.
func (v Vector3) Normalized() (Vector3, bool) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return v, false
	}
	return v.Scale(1 / n), true
}

func (v Vector3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Field holds one vector per lattice site.
type Field []Vector3

func NewField(n int, fill Vector3) Field {
	f := make(Field, n)
	for i := range f {
		f[i] = fill
	}
	return f
}

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

func (f Field) IsValid() bool {
	for _, v := range f {
		if !v.IsValid() {
			return false
		}
	}
	return true
}

// MaxNorm returns the largest vector length in the field.
func (f Field) MaxNorm() float64 {
	m := 0.0
	for _, v := range f {
		m = math.Max(m, v.Norm())
	}
	return m
}
