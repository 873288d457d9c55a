// Package visfile manages the reading of simulator visualization
// dumps: an HDF5 data file holding per-cycle field values alongside a
// mesh file holding per-cycle geometry. A VisFile session loads the
// cycle/time index, optionally narrows it, and serves field values in
// either store order or a structured mesh order.
package visfile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/flowviz/visdump/mesh"
)

// Conversion factors from stored simulation time to each accepted unit.
// Stored times are in years.
var timeFactors = map[string]float64{
	"yr":     1.0,
	"noleap": 365.25 / 365,
	"d":      365.25,
	"hr":     365.25 * 24,
	"s":      365.25 * 24 * 3600,
}

// Session states. Open leaves the session with times loaded; LoadMesh
// moves it to mesh loaded. Accessors on an unopened zero value fail
// with ErrNotLoaded rather than dereferencing a nil store handle.
type state int

const (
	stateUninitialized state = iota
	stateTimesLoaded
	stateMeshLoaded
)

// VisFile manages one visualization dump.
type VisFile struct {
	Directory    string
	Domain       string
	Filename     string
	MeshFilename string
	TimeUnit     string
	TimeFactor   float64

	// Cycles holds the store-native cycle keys sorted by integer value,
	// Times the matching simulation times in TimeUnit units. Filters
	// narrow both in lock-step.
	Cycles []string
	Times  []float64

	// Centroids, Map and Volume are set by LoadMesh. Map stays nil when
	// no sort order was requested; field accessors then return values in
	// store order.
	Centroids *mat.Dense
	Map       []int
	Volume    []float64

	d  *hdf5.File
	st state
}

// Option configures Open.
type Option func(*VisFile)

// WithDomain sets the simulator domain name, used in default filenames
// and variable names (e.g. "surface").
func WithDomain(domain string) Option {
	return func(v *VisFile) { v.Domain = domain }
}

// WithFilename overrides the default data filename
// visdump[_domain]_data.h5.
func WithFilename(name string) Option {
	return func(v *VisFile) { v.Filename = name }
}

// WithMeshFilename overrides the default mesh filename
// visdump[_domain]_mesh.h5.
func WithMeshFilename(name string) Option {
	return func(v *VisFile) { v.MeshFilename = name }
}

// WithTimeUnit selects the unit for Times: yr, noleap, d, hr or s.
// Default is yr.
func WithTimeUnit(unit string) Option {
	return func(v *VisFile) { v.TimeUnit = unit }
}

// Open opens the data file in directory and loads the cycle/time index.
// The store handle stays open until Close; callers should defer Close
// on every path.
func Open(directory string, opts ...Option) (*VisFile, error) {
	v := &VisFile{Directory: directory, TimeUnit: "yr"}
	for _, opt := range opts {
		opt(v)
	}

	factor, ok := timeFactors[v.TimeUnit]
	if !ok {
		return nil, fmt.Errorf("time unit %q, must be one of yr, noleap, d, hr or s: %w",
			v.TimeUnit, ErrTimeUnit)
	}
	v.TimeFactor = factor

	if v.Filename == "" {
		if v.Domain == "" {
			v.Filename = "visdump_data.h5"
		} else {
			v.Filename = fmt.Sprintf("visdump_%s_data.h5", v.Domain)
		}
	}
	if v.MeshFilename == "" {
		if v.Domain == "" {
			v.MeshFilename = mesh.DefaultMeshFile
		} else {
			v.MeshFilename = fmt.Sprintf("visdump_%s_mesh.h5", v.Domain)
		}
	}

	d, err := hdf5.Open(filepath.Join(directory, v.Filename))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", v.Filename, err)
	}
	v.d = d

	if err := v.LoadTimes(); err != nil {
		d.Close()
		return nil, err
	}
	return v, nil
}

// Close releases the underlying store handle.
func (v *VisFile) Close() error {
	if v.d == nil {
		return nil
	}
	return v.d.Close()
}

// Fields lists the field names available in the data file.
func (v *VisFile) Fields() ([]string, error) {
	if v.d == nil {
		return nil, ErrNotLoaded
	}
	return v.d.Root().Members()
}

// LoadTimes (re-)loads the full cycle/time index, undoing any filters.
// Cycle keys are enumerated from the first field in the file and sorted
// by integer value; each time is read from the dataset's Time attribute
// and scaled to TimeUnit.
func (v *VisFile) LoadTimes() error {
	if v.d == nil {
		return ErrNotLoaded
	}
	fields, err := v.d.Root().Members()
	if err != nil {
		return fmt.Errorf("listing fields: %w", err)
	}
	if len(fields) == 0 {
		return fmt.Errorf("%s holds no fields", v.Filename)
	}
	field := fields[0]

	grp, err := v.d.OpenGroup(field)
	if err != nil {
		return fmt.Errorf("opening field %q: %w", field, err)
	}
	keys, err := grp.Members()
	if err != nil {
		return fmt.Errorf("listing cycles of %q: %w", field, err)
	}

	numeric := make(map[string]int, len(keys))
	for _, key := range keys {
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("cycle key %q is not an integer: %w", key, err)
		}
		numeric[key] = n
	}
	sort.Slice(keys, func(i, j int) bool { return numeric[keys[i]] < numeric[keys[j]] })

	times := make([]float64, len(keys))
	for i, key := range keys {
		ds, err := v.d.OpenDataset(field + "/" + key)
		if err != nil {
			return fmt.Errorf("opening cycle %s of %q: %w", key, field, err)
		}
		attr := ds.Attr("Time")
		if attr == nil {
			return fmt.Errorf("cycle %s of %q has no Time attribute", key, field)
		}
		t, err := attr.ReadScalarFloat64()
		if err != nil {
			return fmt.Errorf("reading Time of cycle %s: %w", key, err)
		}
		times[i] = t * v.TimeFactor
	}

	v.Cycles, v.Times = keys, times
	if v.st < stateTimesLoaded {
		v.st = stateTimesLoaded
	}
	return nil
}

// FilterIndices narrows the loaded index to the given positions, kept
// in the given order (repetition allowed). Filters compose across
// calls; LoadTimes restores the full index.
func (v *VisFile) FilterIndices(indices ...int) error {
	if v.st < stateTimesLoaded {
		return ErrNotLoaded
	}
	cycles := make([]string, len(indices))
	times := make([]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(v.Cycles) {
			return fmt.Errorf("index %d outside the %d loaded cycles: %w",
				idx, len(v.Cycles), ErrNotFound)
		}
		cycles[i] = v.Cycles[idx]
		times[i] = v.Times[idx]
	}
	v.Cycles, v.Times = cycles, times
	return nil
}

// FilterCycles narrows the index to the given cycle numbers.
func (v *VisFile) FilterCycles(cycles ...int) error {
	if v.st < stateTimesLoaded {
		return ErrNotLoaded
	}
	indices := make([]int, len(cycles))
	for i, c := range cycles {
		idx := v.cycleIndex(c)
		if idx < 0 {
			return fmt.Errorf("cycle %d: %w", c, ErrNotFound)
		}
		indices[i] = idx
	}
	return v.FilterIndices(indices...)
}

// FilterTimes narrows the index to the first cycle within eps of each
// requested time. Both times and eps are in TimeUnit units.
func (v *VisFile) FilterTimes(eps float64, times ...float64) error {
	if v.st < stateTimesLoaded {
		return ErrNotLoaded
	}
	indices := make([]int, len(times))
	for i, t := range times {
		idx := -1
		for j, have := range v.Times {
			if scalar.EqualWithinAbs(have, t, eps) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("time %g within %g: %w", t, eps, ErrNotFound)
		}
		indices[i] = idx
	}
	return v.FilterIndices(indices...)
}

// Variable forms a fully qualified dataset name the way the simulator
// writes them: DOMAIN-name.cell.0. A name already carrying a domain
// ("-") keeps it, as does one already carrying a component suffix (".").
func (v *VisFile) Variable(name string) string {
	if v.Domain != "" && !strings.Contains(name, "-") {
		name = v.Domain + "-" + name
	}
	if !strings.Contains(name, ".") {
		name += ".cell.0"
	}
	return name
}

// Get reads one field's values for one cycle. When LoadMesh cached a
// structured ordering the values come back in that order, otherwise in
// store order.
func (v *VisFile) Get(name string, cycle int) ([]float64, error) {
	if v.st < stateTimesLoaded {
		return nil, ErrNotLoaded
	}
	idx := v.cycleIndex(cycle)
	if idx < 0 {
		return nil, fmt.Errorf("cycle %d: %w", cycle, ErrNotFound)
	}
	val, err := v.getRaw(v.Variable(name), v.Cycles[idx])
	if err != nil {
		return nil, err
	}
	if v.Map == nil {
		return val, nil
	}
	return mesh.Reorder(val, v.Map), nil
}

// GetArray reads one field across every loaded cycle into a
// (cycles × elements) matrix, with the cached ordering applied along
// the element axis when present.
func (v *VisFile) GetArray(name string) (*mat.Dense, error) {
	if v.st < stateTimesLoaded {
		return nil, ErrNotLoaded
	}
	if len(v.Cycles) == 0 {
		return nil, fmt.Errorf("no cycles loaded: %w", ErrNotFound)
	}

	vname := v.Variable(name)
	var out *mat.Dense
	for i, key := range v.Cycles {
		val, err := v.getRaw(vname, key)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = mat.NewDense(len(v.Cycles), len(val), nil)
		}
		if _, nc := out.Dims(); len(val) != nc {
			return nil, fmt.Errorf("cycle %s of %q has %d values, want %d", key, vname, len(val), nc)
		}
		out.SetRow(i, val)
	}
	if v.Map == nil {
		return out, nil
	}
	return mesh.ReorderCols(out, v.Map), nil
}

// MeshOption configures LoadMesh.
type MeshOption func(*meshOptions)

type meshOptions struct {
	cycle    int
	hasCycle bool
	order    []string
	round    int
}

// AtCycle selects which cycle's geometry to load; the mesh may deform
// between cycles. Default is the first loaded cycle.
func AtCycle(cycle int) MeshOption {
	return func(o *meshOptions) { o.cycle, o.hasCycle = cycle, true }
}

// WithOrder caches a structured ordering of the element centroids; all
// later Get and GetArray calls return data in that order. See
// mesh.StructuredOrdering for the axis semantics.
func WithOrder(axes ...string) MeshOption {
	return func(o *meshOptions) { o.order = axes }
}

// WithRound sets the centroid rounding precision in decimal places.
func WithRound(digits int) MeshOption {
	return func(o *meshOptions) { o.round = digits }
}

// LoadMesh loads element centroids and volumes for one cycle. With an
// order it also computes and caches the permutation into structured
// order; without one any previously cached permutation is dropped and
// reads revert to store order.
func (v *VisFile) LoadMesh(opts ...MeshOption) error {
	if v.st < stateTimesLoaded {
		return ErrNotLoaded
	}
	o := meshOptions{round: mesh.DefaultRound}
	for _, opt := range opts {
		opt(&o)
	}

	var key string
	if o.hasCycle {
		idx := v.cycleIndex(o.cycle)
		if idx < 0 {
			return fmt.Errorf("cycle %d: %w", o.cycle, ErrNotFound)
		}
		key = v.Cycles[idx]
	} else {
		if len(v.Cycles) == 0 {
			return fmt.Errorf("no cycles loaded: %w", ErrNotFound)
		}
		key = v.Cycles[0]
	}

	centroids, err := mesh.Centroids(filepath.Join(v.Directory, v.MeshFilename), key, o.round)
	if err != nil {
		return err
	}

	if len(o.order) == 0 {
		v.Centroids, v.Map = centroids, nil
	} else {
		ordered, perm, err := mesh.StructuredOrdering(centroids, o.order)
		if err != nil {
			return err
		}
		v.Centroids, v.Map = ordered, perm
	}
	v.st = stateMeshLoaded

	cycle, _ := strconv.Atoi(key)
	volume, err := v.Get("cell_volume", cycle)
	if err != nil {
		return fmt.Errorf("loading cell volumes: %w", err)
	}
	v.Volume = volume
	return nil
}

// cycleIndex returns the position of a cycle number in the loaded
// index, or -1.
func (v *VisFile) cycleIndex(cycle int) int {
	for i, key := range v.Cycles {
		if n, err := strconv.Atoi(key); err == nil && n == cycle {
			return i
		}
	}
	return -1
}

// getRaw reads one fully resolved variable for one native cycle key.
// Rank-2 datasets keep component column 0, matching the store layout of
// (elements × 1) value arrays.
func (v *VisFile) getRaw(vname, key string) ([]float64, error) {
	ds, err := v.d.OpenDataset(vname + "/" + key)
	if err != nil {
		return nil, fmt.Errorf("reading %q cycle %s: %w", vname, key, err)
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %q cycle %s: %w", vname, key, err)
	}
	if dims := ds.Dims(); len(dims) == 2 && dims[1] > 1 {
		k := int(dims[1])
		col := make([]float64, 0, len(vals)/k)
		for i := 0; i < len(vals); i += k {
			col = append(col, vals[i])
		}
		return col, nil
	}
	return vals, nil
}
