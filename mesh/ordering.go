package mesh

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrAxis reports a sort axis that is unknown or exceeds the
// dimensionality of the coordinates being sorted.
var ErrAxis = errors.New("invalid sort axis")

var axisColumn = map[string]int{"x": 0, "y": 1, "z": 2}

// StructuredOrdering sorts coordinate rows into a natural order for
// structured meshes. It returns the reordered copy together with the
// permutation realizing it: ordered row i equals coords row perm[i].
//
// order lists sort axes drawn from "x", "y" and, for 3D coordinates,
// "z". Note that omitted axes always go first: each missing axis is
// prepended ahead of the listed ones (x, then y, then z, so among the
// implicit axes z takes top priority). Listing an axis therefore lowers
// its priority below every omitted axis. Downstream consumers depend on
// this order, so it is preserved as-is; see the package tests.
//
// Sorting a column of cells into a 1D profile:
//
//	ordered, perm, err := StructuredOrdering(centroids, []string{"z"})
//
// Sorting a transect where x is structured and z varies with x:
//
//	ordered, perm, err := StructuredOrdering(centroids, []string{"x", "z"})
//
// Ties on every key keep their original relative order.
func StructuredOrdering(coords mat.Matrix, order []string) (*mat.Dense, []int, error) {
	n, dim := coords.Dims()

	for _, axis := range order {
		col, ok := axisColumn[axis]
		if !ok || col >= dim {
			return nil, nil, fmt.Errorf("axis %q for %dD coordinates: %w", axis, dim, ErrAxis)
		}
	}

	keys := make([]string, len(order))
	copy(keys, order)
	for _, axis := range []string{"x", "y", "z"} {
		if axis == "z" && dim < 3 {
			continue
		}
		if !containsAxis(keys, axis) {
			keys = append([]string{axis}, keys...)
		}
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		a, b := perm[i], perm[j]
		for _, key := range keys {
			col := axisColumn[key]
			va, vb := coords.At(a, col), coords.At(b, col)
			if va != vb {
				return va < vb
			}
		}
		return false
	})

	ordered := mat.NewDense(n, dim, nil)
	for i, src := range perm {
		for j := 0; j < dim; j++ {
			ordered.Set(i, j, coords.At(src, j))
		}
	}
	return ordered, perm, nil
}

func containsAxis(axes []string, axis string) bool {
	for _, a := range axes {
		if a == axis {
			return true
		}
	}
	return false
}

// Reorder applies a permutation to one cycle's values, leaving the
// input untouched: out[i] = data[perm[i]].
func Reorder(data []float64, perm []int) []float64 {
	out := make([]float64, len(perm))
	for i, src := range perm {
		if src < 0 || src >= len(data) {
			panic(fmt.Sprintf("reorder: index %d out of bounds for %d values", src, len(data)))
		}
		out[i] = data[src]
	}
	return out
}

// ReorderCols applies a permutation along the element axis of a stacked
// (cycles × elements) matrix: out[c][i] = m[c][perm[i]].
func ReorderCols(m mat.Matrix, perm []int) *mat.Dense {
	nr, nc := m.Dims()
	out := mat.NewDense(nr, len(perm), nil)
	for j, src := range perm {
		if src < 0 || src >= nc {
			panic(fmt.Sprintf("reorder: index %d out of bounds for %d columns", src, nc))
		}
		for i := 0; i < nr; i++ {
			out.Set(i, j, m.At(i, src))
		}
	}
	return out
}
