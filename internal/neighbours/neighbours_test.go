package neighbours

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/spin"
)

func shellCounts(nb []Neighbour, nShells int) []int {
	counts := make([]int, nShells)
	for _, n := range nb {
		counts[n.Shell]++
	}
	return counts
}

func TestInShells_Counts(t *testing.T) {
	tests := []struct {
		lattice string
		cells   [3]int
		nShells int
		want    []int
	}{
		{"square", [3]int{5, 5, 1}, 3, []int{4, 4, 4}},
		{"sc", [3]int{4, 4, 4}, 3, []int{6, 12, 8}},
		{"hex", [3]int{6, 6, 1}, 3, []int{6, 6, 6}},
		{"bcc", [3]int{3, 3, 3}, 2, []int{8, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.lattice, func(t *testing.T) {
			g, err := geometry.FromLattice(tt.lattice, tt.cells, 1.0)
			if err != nil {
				t.Fatal(err)
			}
			nb, err := NewFinder().InShells(g, tt.nShells)
			if err != nil {
				t.Fatalf("InShells failed: %v", err)
			}
			got := shellCounts(nb, tt.nShells)
			for s := range tt.want {
				// counts are summed over every unit-cell site
				want := tt.want[s] * g.NCellAtoms()
				if got[s] != want {
					t.Errorf("shell %d: expected %d neighbours, got %d", s, want, got[s])
				}
			}
		})
	}
}

func TestInShells_Symmetric(t *testing.T) {
	g, _ := geometry.FromLattice("hex", [3]int{4, 4, 1}, 1.0)
	nb, err := NewFinder().InShells(g, 2)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[Pair]bool, len(nb))
	for _, n := range nb {
		seen[n.Pair] = true
	}
	for _, n := range nb {
		rev := Pair{I: n.J, J: n.I, Translation: [3]int{-n.Translation[0], -n.Translation[1], -n.Translation[2]}}
		if !seen[rev] {
			t.Errorf("missing reverse of %+v", n.Pair)
		}
	}
}

func TestInShells_EdgeCases(t *testing.T) {
	g, _ := geometry.FromLattice("square", [3]int{3, 3, 1}, 1.0)
	f := NewFinder()

	nb, err := f.InShells(g, 0)
	if err != nil || len(nb) != 0 {
		t.Errorf("expected no neighbours for zero shells, got %d (err=%v)", len(nb), err)
	}

	if _, err := f.InShells(g, -1); !errors.Is(err, ErrNegativeShells) {
		t.Errorf("expected ErrNegativeShells, got %v", err)
	}
}

func TestInShells_Deterministic(t *testing.T) {
	g, _ := geometry.FromLattice("sc", [3]int{3, 3, 3}, 1.0)
	f := NewFinder()

	a, _ := f.InShells(g, 2)
	b, _ := f.InShells(g, 2)
	if len(a) != len(b) {
		t.Fatalf("expected equal lengths, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("enumeration differs at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestShellRadii(t *testing.T) {
	g, _ := geometry.FromLattice("square", [3]int{5, 5, 1}, 2.0)
	radii := NewFinder().ShellRadii(g, 0, 3)
	want := []float64{2, 2 * math.Sqrt2, 4}
	if len(radii) != len(want) {
		t.Fatalf("expected %d radii, got %d", len(want), len(radii))
	}
	for i := range want {
		if math.Abs(radii[i]-want[i]) > 1e-9 {
			t.Errorf("radius %d = %f, want %f", i, radii[i], want[i])
		}
	}
}

func TestDMINormal(t *testing.T) {
	g, _ := geometry.FromLattice("sc", [3]int{3, 3, 3}, 1.0)
	f := NewFinder()
	px := Pair{I: 0, J: 0, Translation: [3]int{1, 0, 0}}
	pz := Pair{I: 0, J: 0, Translation: [3]int{0, 0, 1}}

	tests := []struct {
		name string
		pair Pair
		c    Chirality
		want spin.Vector3
	}{
		{"bloch", px, Bloch, spin.UnitX},
		{"inverse bloch", px, InverseBloch, spin.Vector3{-1, 0, 0}},
		{"neel", px, Neel, spin.UnitY},
		{"inverse neel", px, InverseNeel, spin.Vector3{0, -1, 0}},
		{"bloch along z", pz, Bloch, spin.UnitZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.DMINormal(g, tt.pair, tt.c)
			if err != nil {
				t.Fatalf("DMINormal failed: %v", err)
			}
			if got.Sub(tt.want).Norm() > 1e-12 {
				t.Errorf("DMINormal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDMINormal_Errors(t *testing.T) {
	g, _ := geometry.FromLattice("sc", [3]int{3, 3, 3}, 1.0)
	f := NewFinder()

	pz := Pair{I: 0, J: 0, Translation: [3]int{0, 0, 1}}
	if _, err := f.DMINormal(g, pz, Neel); !errors.Is(err, ErrDegenerateNormal) {
		t.Errorf("expected ErrDegenerateNormal, got %v", err)
	}

	px := Pair{I: 0, J: 0, Translation: [3]int{1, 0, 0}}
	if _, err := f.DMINormal(g, px, Chirality(7)); !errors.Is(err, ErrInvalidChirality) {
		t.Errorf("expected ErrInvalidChirality, got %v", err)
	}
}
