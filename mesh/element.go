package mesh

import "fmt"

// ElementType identifies the single element shape of a mesh snapshot.
// Arbitrary polyhedra (NSIDED, NFACED) are not supported.
type ElementType int

const (
	Triangle ElementType = iota
	Quad
	Prism
	Hex
)

func (e ElementType) String() string {
	return [...]string{"TRIANGLE", "QUAD", "PRISM", "HEX"}[e]
}

// NumNodes returns the node count per element of this type.
func (e ElementType) NumNodes() int {
	return [...]int{3, 4, 6, 8}[e]
}

// Tag returns the type tag that marks this element type in a
// MixedElements connectivity buffer.
func (e ElementType) Tag() int64 {
	return [...]int64{4, 5, 8, 9}[e]
}

// ElementTypeFromTag maps a connectivity type tag to its ElementType.
func ElementTypeFromTag(tag int64) (ElementType, error) {
	switch tag {
	case 4:
		return Triangle, nil
	case 5:
		return Quad, nil
	case 8:
		return Prism, nil
	case 9:
		return Hex, nil
	}
	return 0, fmt.Errorf("element type tag %d: %w", tag, ErrFormat)
}
