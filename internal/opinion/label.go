// Package opinion defines the binary opinion labels and the forced-fraction
// minority assignment that seeds a simulation.
package opinion

// Label is one of the two opinions a node can hold.
type Label uint8

const (
	// Blue is the majority-side opinion every node starts with.
	Blue Label = iota
	// Red is the minority-side opinion assigned to influencers and fill
	// nodes.
	Red
)

// String returns "blue" or "red".
func (l Label) String() string {
	if l == Red {
		return "red"
	}
	return "blue"
}

// Labeling assigns a label to every node, indexed by node ID. It is total
// by construction: a fresh labeling is all Blue.
type Labeling []Label

// NewLabeling returns an all-Blue labeling for n nodes.
func NewLabeling(n int) Labeling {
	return make(Labeling, n)
}

// Clone returns an independent copy.
func (l Labeling) Clone() Labeling {
	out := make(Labeling, len(l))
	copy(out, l)
	return out
}

// CountRed returns the number of Red nodes.
func (l Labeling) CountRed() int {
	red := 0
	for _, lab := range l {
		if lab == Red {
			red++
		}
	}
	return red
}

// Counts returns the number of Blue and Red nodes.
func (l Labeling) Counts() (blue, red int) {
	for _, lab := range l {
		if lab == Red {
			red++
		} else {
			blue++
		}
	}
	return blue, red
}

// Equal reports whether two labelings assign identical labels.
func (l Labeling) Equal(other Labeling) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}
