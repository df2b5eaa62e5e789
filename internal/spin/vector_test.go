package spin

import (
	"errors"
	"math"
	"testing"
)

func TestVector3_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   Vector3
		want Vector3
		ok   bool
	}{
		{"unit z", Vector3{0, 0, 1}, Vector3{0, 0, 1}, true},
		{"scaled", Vector3{3, 4, 0}, Vector3{0.6, 0.8, 0}, true},
		{"negative", Vector3{0, -2, 0}, Vector3{0, -1, 0}, true},
		{"zero", Vector3{}, Vector3{}, false},
		{"nan", Vector3{math.NaN(), 0, 0}, Vector3{math.NaN(), 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.Normalized()
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("Normalized(%v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestVector3_Arithmetic(t *testing.T) {
	a := Vector3{1, 2, 3}
	b := Vector3{4, 5, 6}

	if got := a.Add(b); got != (Vector3{5, 7, 9}) {
		t.Errorf("Add failed: got %v", got)
	}
	if got := b.Sub(a); got != (Vector3{3, 3, 3}) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := a.Scale(2); got != (Vector3{2, 4, 6}) {
		t.Errorf("Scale failed: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot failed: got %v", got)
	}
	if got := UnitX.Cross(UnitY); got != UnitZ {
		t.Errorf("Cross failed: got %v", got)
	}
	if got := UnitZ.Cross(UnitX); got != UnitY {
		t.Errorf("Cross failed: got %v", got)
	}
}

func TestField(t *testing.T) {
	f := NewField(4, UnitZ)
	if len(f) != 4 {
		t.Fatalf("expected 4 sites, got %d", len(f))
	}

	c := f.Clone()
	c[0] = UnitX
	if f[0] != UnitZ {
		t.Error("Clone did not create independent copy")
	}

	if !f.IsValid() {
		t.Error("expected valid field")
	}
	f[2] = Vector3{math.Inf(1), 0, 0}
	if f.IsValid() {
		t.Error("expected invalid field with Inf component")
	}

	g := Field{{3, 4, 0}, {0, 0, 1}}
	if got := g.MaxNorm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("MaxNorm = %v, want 5", got)
	}
}

func TestUnsupportedError(t *testing.T) {
	err := error(&UnsupportedError{Op: "GetExchange", Hamiltonian: "Heisenberg (Pairs)"})

	if !errors.Is(err, ErrUnsupported) {
		t.Error("expected UnsupportedError to unwrap to ErrUnsupported")
	}
	expected := "spin: GetExchange is not supported by Heisenberg (Pairs)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
