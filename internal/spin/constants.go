package spin

const (
	// MuB is the Bohr magneton in meV/T.
	MuB = 0.057883817555

	// DefaultMuS is the moment magnitude, in units of MuB, assigned to every
	// site of a freshly constructed Hamiltonian.
	DefaultMuS = 1.0
)
