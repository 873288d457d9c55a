// Package mesh reads fixed-topology mesh snapshots from HDF5
// visualization dumps and derives structured orderings of their
// elements from centroid positions.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"gonum.org/v1/gonum/mat"
)

// DefaultMeshFile is the simulator's default mesh dump filename.
const DefaultMeshFile = "visdump_mesh.h5"

// DefaultRound is the decimal precision applied to centroid components.
const DefaultRound = 5

// ErrFormat reports mesh layouts this reader does not process: mixed
// element types, unknown type tags, or misaligned connectivity buffers.
var ErrFormat = errors.New("unsupported mesh format")

// ReadMesh reads nodal coordinates and connectivity for one mesh
// snapshot. key names the snapshot group, normally the cycle number;
// "" selects the first group in the file.
//
// Coordinates are keyed by global node id and are 2D or 3D, inferred
// from the node table. Connectivity rows are [tag, n0, ..., nk], one
// row per element. Only single-element-type meshes are processed.
func ReadMesh(path, key string) (etype ElementType, coords map[int64][]float64, conn [][]int64, err error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("opening mesh file: %w", err)
	}
	defer f.Close()

	if key == "" {
		members, err := f.Root().Members()
		if err != nil {
			return 0, nil, nil, fmt.Errorf("listing mesh snapshots: %w", err)
		}
		if len(members) == 0 {
			return 0, nil, nil, fmt.Errorf("%s holds no mesh snapshots: %w", path, ErrFormat)
		}
		key = members[0]
	}

	grp, err := f.OpenGroup(key + "/Mesh")
	if err != nil {
		return 0, nil, nil, fmt.Errorf("opening mesh group %q: %w", key, err)
	}

	elems, err := readInts(grp, "MixedElements")
	if err != nil {
		return 0, nil, nil, err
	}
	if len(elems) == 0 {
		return 0, nil, nil, fmt.Errorf("empty connectivity buffer: %w", ErrFormat)
	}

	etype, err = ElementTypeFromTag(elems[0])
	if err != nil {
		return 0, nil, nil, err
	}
	stride := etype.NumNodes() + 1
	if len(elems)%stride != 0 {
		return 0, nil, nil, fmt.Errorf("connectivity length %d not divisible by %s stride %d: %w",
			len(elems), etype, stride, ErrFormat)
	}

	nElems := len(elems) / stride
	conn = make([][]int64, nElems)
	for i := range conn {
		row := elems[i*stride : (i+1)*stride]
		if row[0] != elems[0] {
			return 0, nil, nil, fmt.Errorf("mixed element types (tag %d and %d): %w",
				elems[0], row[0], ErrFormat)
		}
		conn[i] = row
	}

	nodeIDs, err := readInts(grp, "NodeMap")
	if err != nil {
		return 0, nil, nil, err
	}
	nodesDS, err := grp.OpenDataset("Nodes")
	if err != nil {
		return 0, nil, nil, fmt.Errorf("opening Nodes: %w", err)
	}
	nodes, err := nodesDS.ReadFloat64()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading Nodes: %w", err)
	}

	if len(nodeIDs) == 0 || len(nodes)%len(nodeIDs) != 0 {
		return 0, nil, nil, fmt.Errorf("node table length %d does not match %d node ids: %w",
			len(nodes), len(nodeIDs), ErrFormat)
	}
	dim := len(nodes) / len(nodeIDs)
	if dim < 2 || dim > 3 {
		return 0, nil, nil, fmt.Errorf("%dD node coordinates: %w", dim, ErrFormat)
	}

	coords = make(map[int64][]float64, len(nodeIDs))
	for i, id := range nodeIDs {
		coords[id] = nodes[i*dim : (i+1)*dim]
	}
	return etype, coords, conn, nil
}

// Centroids reads a mesh snapshot and returns an (elements × dimension)
// matrix of element centroids, the unweighted mean of each element's
// node coordinates. Every component is rounded to round decimal places
// here, before any caller sorts on it, so ordering is not perturbed by
// floating point representation noise.
func Centroids(path, key string, round int) (*mat.Dense, error) {
	_, coords, conn, err := ReadMesh(path, key)
	if err != nil {
		return nil, err
	}

	var dim int
	for _, xyz := range coords {
		dim = len(xyz)
		break
	}

	centroids := mat.NewDense(len(conn), dim, nil)
	for i, elem := range conn {
		acc := make([]float64, dim)
		for _, gid := range elem[1:] {
			xyz, ok := coords[gid]
			if !ok {
				return nil, fmt.Errorf("element %d references node id %d outside the node map: %w",
					i, gid, ErrFormat)
			}
			for k, v := range xyz {
				acc[k] += v
			}
		}
		nNodes := float64(len(elem) - 1)
		for k := range acc {
			centroids.Set(i, k, roundTo(acc[k]/nNodes, round))
		}
	}
	return centroids, nil
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

func readInts(g *hdf5.Group, name string) ([]int64, error) {
	ds, err := g.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	vals, err := ds.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return vals, nil
}
