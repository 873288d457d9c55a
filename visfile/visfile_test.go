package visfile

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cycleData struct {
	key    string
	time   float64
	values []float64
}

// writeDataFile builds a data dump where every field carries the same
// cycles. Cycle keys are created out of numeric order on purpose.
func writeDataFile(t *testing.T, dir, filename string, fields map[string][]cycleData) {
	t.Helper()
	f, err := hdf5.Create(filepath.Join(dir, filename))
	require.NoError(t, err)
	for name, cycles := range fields {
		grp, err := f.Root().CreateGroup(name)
		require.NoError(t, err)
		for _, c := range cycles {
			_, err = grp.CreateDataset(c.key, c.values, hdf5.WithAttribute("Time", c.time))
			require.NoError(t, err)
		}
	}
	require.NoError(t, f.Close())
}

// writeColumnMesh builds a mesh of nQuads unit quads stacked at the
// given z positions, in that storage order. Centroids come out at
// (0.5, 0.5, z).
func writeColumnMesh(t *testing.T, dir, filename string, key string, zs []float64) {
	t.Helper()
	var elems []int32
	var nodeIDs []int32
	var nodes []float64
	for i, z := range zs {
		base := int32(4 * i)
		elems = append(elems, 5, base, base+1, base+2, base+3)
		nodeIDs = append(nodeIDs, base, base+1, base+2, base+3)
		nodes = append(nodes,
			0, 0, z,
			1, 0, z,
			1, 1, z,
			0, 1, z)
	}

	f, err := hdf5.Create(filepath.Join(dir, filename))
	require.NoError(t, err)
	grp, err := f.Root().CreateGroup(key)
	require.NoError(t, err)
	mg, err := grp.CreateGroup("Mesh")
	require.NoError(t, err)
	_, err = mg.CreateDataset("MixedElements", elems)
	require.NoError(t, err)
	_, err = mg.CreateDataset("NodeMap", nodeIDs)
	require.NoError(t, err)
	_, err = mg.CreateDataset("Nodes", nodes)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// testDump writes a three-quad column mesh with elements stored at
// z = 2, 0, 1 plus pressure and cell_volume fields over cycles 0, 2
// and 10. Pressure tracks 10*z so store and structured orders differ.
func testDump(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeDataFile(t, dir, "visdump_data.h5", map[string][]cycleData{
		"pressure.cell.0": {
			{"0", 0.0, []float64{20, 0, 10}},
			{"10", 1.0, []float64{21, 1, 11}},
			{"2", 0.5, []float64{22, 2, 12}},
		},
		"cell_volume.cell.0": {
			{"0", 0.0, []float64{3, 1, 2}},
			{"10", 1.0, []float64{3, 1, 2}},
			{"2", 0.5, []float64{3, 1, 2}},
		},
	})
	writeColumnMesh(t, dir, "visdump_mesh.h5", "0", []float64{2, 0, 1})
	return dir
}

func TestOpenLoadsTimes(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	// Keys sort numerically, not lexically.
	assert.Equal(t, []string{"0", "2", "10"}, v.Cycles)
	assert.Equal(t, []float64{0.0, 0.5, 1.0}, v.Times)
	assert.Equal(t, 1.0, v.TimeFactor)
	assert.Equal(t, "visdump_data.h5", v.Filename)
	assert.Equal(t, "visdump_mesh.h5", v.MeshFilename)
}

func TestOpenTimeUnitScaling(t *testing.T) {
	v, err := Open(testDump(t), WithTimeUnit("d"))
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, []float64{0.0, 0.5 * 365.25, 365.25}, v.Times)
}

func TestOpenBadTimeUnit(t *testing.T) {
	// Validation happens before any file access: the directory does not
	// even exist.
	_, err := Open(filepath.Join(t.TempDir(), "missing"), WithTimeUnit("fortnight"))
	assert.ErrorIs(t, err, ErrTimeUnit)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeUnit)
}

func TestDomainFilenames(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "visdump_surface_data.h5", map[string][]cycleData{
		"surface-depth.cell.0": {{"0", 0.0, []float64{1, 2}}},
	})
	v, err := Open(dir, WithDomain("surface"))
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, "visdump_surface_data.h5", v.Filename)
	assert.Equal(t, "visdump_surface_mesh.h5", v.MeshFilename)

	val, err := v.Get("depth", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, val)
}

func TestVariable(t *testing.T) {
	v := &VisFile{Domain: "surface"}
	assert.Equal(t, "surface-pressure.cell.0", v.Variable("pressure"))
	assert.Equal(t, "surface-ponded_depth.face.0", v.Variable("ponded_depth.face.0"))
	assert.Equal(t, "snow-depth.cell.0", v.Variable("snow-depth"))

	bare := &VisFile{}
	assert.Equal(t, "pressure.cell.0", bare.Variable("pressure"))
}

func TestFilterIndices(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.FilterIndices(2, 0))
	assert.Equal(t, []string{"10", "0"}, v.Cycles)
	assert.Equal(t, []float64{1.0, 0.0}, v.Times)

	err = v.FilterIndices(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterCycles(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.FilterCycles(10, 2))
	assert.Equal(t, []string{"10", "2"}, v.Cycles)
	assert.Equal(t, []float64{1.0, 0.5}, v.Times)

	err = v.FilterCycles(7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterTimes(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "visdump_data.h5", map[string][]cycleData{
		"pressure.cell.0": {
			{"0", 1.0, []float64{1}},
			{"1", 4.6, []float64{2}},
			{"2", 9.0, []float64{3}},
		},
	})
	v, err := Open(dir)
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.FilterTimes(1.0, 5.0))
	assert.Equal(t, []string{"1"}, v.Cycles)
	assert.Equal(t, []float64{4.6}, v.Times)

	require.NoError(t, v.LoadTimes())
	err = v.FilterTimes(0.1, 5.0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFiltersCompose(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.FilterIndices(1, 2))
	require.NoError(t, v.FilterCycles(10))
	assert.Equal(t, []string{"10"}, v.Cycles)

	// LoadTimes undoes both filters.
	require.NoError(t, v.LoadTimes())
	assert.Equal(t, []string{"0", "2", "10"}, v.Cycles)
}

func TestGetStoreOrder(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	val, err := v.Get("pressure", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 0, 10}, val)

	_, err = v.Get("pressure", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMeshWithoutOrder(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.LoadMesh())
	assert.Nil(t, v.Map)
	require.NotNil(t, v.Centroids)
	assert.Equal(t, []float64{0.5, 0.5, 2.0}, v.Centroids.RawRowView(0))
	assert.Equal(t, []float64{3, 1, 2}, v.Volume)

	// Reads stay in store order.
	val, err := v.Get("pressure", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 0, 10}, val)
}

func TestLoadMeshStructuredOrder(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.LoadMesh(WithOrder("z")))
	assert.Equal(t, []int{1, 2, 0}, v.Map)
	for i := 0; i < 3; i++ {
		assert.Equal(t, float64(i), v.Centroids.At(i, 2))
	}
	assert.Equal(t, []float64{1, 2, 3}, v.Volume)

	val, err := v.Get("pressure", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 20}, val)

	// Loading again without an order drops the permutation.
	require.NoError(t, v.LoadMesh())
	val, err = v.Get("pressure", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 0, 10}, val)
}

func TestGetArray(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	arr, err := v.GetArray("pressure")
	require.NoError(t, err)
	nr, nc := arr.Dims()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 3, nc)
	assert.Equal(t, []float64{20, 0, 10}, arr.RawRowView(0))
	assert.Equal(t, []float64{21, 1, 11}, arr.RawRowView(2))
}

func TestGetArrayOrderedAndFiltered(t *testing.T) {
	v, err := Open(testDump(t))
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.FilterCycles(10, 0))
	require.NoError(t, v.LoadMesh(AtCycle(0), WithOrder("z")))

	arr, err := v.GetArray("pressure")
	require.NoError(t, err)
	nr, _ := arr.Dims()
	assert.Equal(t, 2, nr)
	assert.Equal(t, []float64{1, 11, 21}, arr.RawRowView(0))
	assert.Equal(t, []float64{0, 10, 20}, arr.RawRowView(1))
}

func TestZeroValueGuards(t *testing.T) {
	var v VisFile

	_, err := v.Get("pressure", 0)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = v.GetArray("pressure")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, v.LoadMesh(), ErrNotLoaded)
	assert.ErrorIs(t, v.FilterIndices(0), ErrNotLoaded)
	assert.ErrorIs(t, v.LoadTimes(), ErrNotLoaded)
	assert.NoError(t, v.Close())
}
