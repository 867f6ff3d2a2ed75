package math

import (
	stdmath "math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return stdmath.Abs(a-b) < 1e-9
}

func vecAlmostEqual(a, b Vec3) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	n := v.Normalize()
	if !almostEqual(n.Length(), 1) {
		t.Errorf("Vec3.Normalize().Length() = %v, want 1", n.Length())
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translate(Vec3{1, 2, 3})
	got := m.Mul(Identity())
	if got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
}

func TestMat4Inverse(t *testing.T) {
	m := Compose(Vec3{1, -2, 3}, QuatIdentity(), Vec3{2, 2, 2})
	inv := m.Inverse()
	p := Vec3{5, 6, 7}
	back := inv.TransformPoint(m.TransformPoint(p))
	if !vecAlmostEqual(back, p) {
		t.Errorf("inverse round trip = %v, want %v", back, p)
	}
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	tr := Vec3{1, 2, 3}
	rot := Quat{X: 0, Y: stdmath.Sqrt2 / 2, Z: 0, W: stdmath.Sqrt2 / 2}
	sc := Vec3{2, 3, 4}

	m := Compose(tr, rot, sc)
	gt, gr, gs := m.Decompose()

	if !vecAlmostEqual(gt, tr) {
		t.Errorf("translation = %v, want %v", gt, tr)
	}
	if !vecAlmostEqual(gs, sc) {
		t.Errorf("scale = %v, want %v", gs, sc)
	}
	// q and -q encode the same rotation.
	if d := stdmath.Abs(gr.Dot(rot)); d < 1-1e-9 {
		t.Errorf("rotation dot = %v, want 1", d)
	}
}

func TestQuatRotateMatchesMatrix(t *testing.T) {
	q := Quat{X: stdmath.Sqrt2 / 2, Y: 0, Z: 0, W: stdmath.Sqrt2 / 2} // 90deg about X
	v := Vec3{0, 1, 0}
	got := q.Rotate(v)
	want := q.ToMat4().TransformPoint(v)
	if !vecAlmostEqual(got, want) {
		t.Errorf("Quat.Rotate() = %v, ToMat4().TransformPoint() = %v", got, want)
	}
}

func TestAABBExtend(t *testing.T) {
	var b AABB
	b = b.ExtendPoint(Vec3{1, -1, 2}, false)
	b = b.ExtendPoint(Vec3{-3, 4, 0}, true)

	want := AABB{Min: Vec3{-3, -1, 0}, Max: Vec3{1, 4, 2}}
	if b != want {
		t.Errorf("ExtendPoint chain = %v, want %v", b, want)
	}
}

func TestAABBHalfExtent(t *testing.T) {
	b := AABB{Min: Vec3{-1, -5, 2}, Max: Vec3{3, 1, 4}}
	got := b.HalfExtent()
	want := Vec3{3, 5, 4}
	if got != want {
		t.Errorf("HalfExtent() = %v, want %v", got, want)
	}
}
