package coverage

import (
	"fmt"
	"slices"

	"github.com/pdok/tilecov/mathhelp"
	"github.com/pdok/tilecov/webmerc"
)

// Index is the query side of a TileAvailabilityMap. All arrays are built once
// by NewIndex and never mutated afterwards, so any number of readers may
// query concurrently without locking.
type Index struct {
	zbase    int
	zmax     int
	datasets []DatasetEntry
	base     DatasetID
	levels   []queryLevel
}

// queryLevel holds one zoom level as aligned flat structures: sorted row
// indices, per-row offsets into the interval arrays, and the interval columns
// and datasets themselves.
type queryLevel struct {
	rows    []int
	offsets []int // len(rows)+1
	x0      []int
	x1      []int
	dataset []DatasetID
}

// NewIndex reconstructs the flat query arrays from a decoded structure. It
// replays the encoding exactly: row deltas accumulate into absolute row
// indices and column gaps plus lengths into absolute column ranges, with the
// column cursor reset at the start of every row. The format tag is checked
// before any level data is touched.
func NewIndex(m *TileAvailabilityMap) (*Index, error) {
	if m.Format != Format {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrFormatMismatch, m.Format, Format)
	}
	if m.ZMax < m.ZBase {
		return nil, fmt.Errorf("%w: zmax %d below zbase %d", ErrStructuralInconsistency, m.ZMax, m.ZBase)
	}
	if len(m.Levels) != m.ZMax-m.ZBase {
		return nil, fmt.Errorf("%w: %d levels for zoom range %d..%d",
			ErrStructuralInconsistency, len(m.Levels), m.ZBase+1, m.ZMax)
	}
	base := NoDataset
	if m.Base != nil {
		if *m.Base < 0 || *m.Base >= len(m.Datasets) {
			return nil, fmt.Errorf("%w: base dataset index %d outside table of %d",
				ErrStructuralInconsistency, *m.Base, len(m.Datasets))
		}
		base = DatasetID(*m.Base)
	}

	ix := &Index{
		zbase:    m.ZBase,
		zmax:     m.ZMax,
		datasets: m.Datasets,
		base:     base,
		levels:   make([]queryLevel, len(m.Levels)),
	}
	for i, level := range m.Levels {
		zoom := m.ZBase + 1 + i
		if level.Zoom != zoom {
			return nil, fmt.Errorf("%w: level %d declares zoom %d, want %d",
				ErrStructuralInconsistency, i, level.Zoom, zoom)
		}
		ql, err := decodeRows(level.Rows, zoom, len(m.Datasets))
		if err != nil {
			return nil, err
		}
		ix.levels[i] = ql
	}
	return ix, nil
}

//nolint:cyclop
func decodeRows(encoded []int, zoom, numDatasets int) (queryLevel, error) {
	ql := queryLevel{offsets: []int{0}}
	n := int(mathhelp.Pow2(uint(zoom)))
	y := 0
	i := 0
	for i < len(encoded) {
		if i+2 > len(encoded) {
			return ql, structuralErr(zoom, y, "truncated row header at position %d", i)
		}
		delta, count := encoded[i], encoded[i+1]
		i += 2
		if len(ql.rows) == 0 {
			if delta < 0 {
				return ql, structuralErr(zoom, y, "negative first row index %d", delta)
			}
			y = delta
		} else {
			if delta < 1 {
				return ql, structuralErr(zoom, y, "non-increasing row delta %d", delta)
			}
			y += delta
		}
		if count < 1 {
			// empty rows are never encoded
			return ql, structuralErr(zoom, y, "declared interval count %d", count)
		}
		if i+3*count > len(encoded) {
			return ql, structuralErr(zoom, y, "%d declared intervals exceed the array (%d of %d left)",
				count, len(encoded)-i, 3*count)
		}
		cursor := 0
		for c := 0; c < count; c++ {
			gap, length, dataset := encoded[i], encoded[i+1], encoded[i+2]
			i += 3
			if gap < 0 {
				return ql, structuralErr(zoom, y, "negative column gap %d", gap)
			}
			if length < 1 {
				return ql, structuralErr(zoom, y, "interval length %d", length)
			}
			if dataset < 0 || dataset >= numDatasets {
				return ql, structuralErr(zoom, y, "dataset index %d outside table of %d", dataset, numDatasets)
			}
			x0 := cursor + gap
			if x0+length > n {
				return ql, structuralErr(zoom, y, "interval [%d, %d] beyond grid width %d", x0, x0+length-1, n)
			}
			ql.x0 = append(ql.x0, x0)
			ql.x1 = append(ql.x1, x0+length-1)
			ql.dataset = append(ql.dataset, DatasetID(dataset))
			cursor = x0 + length
		}
		ql.rows = append(ql.rows, y)
		ql.offsets = append(ql.offsets, len(ql.x0))
	}
	return ql, nil
}

func structuralErr(zoom, row int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: zoom %d row %d: %s", ErrStructuralInconsistency, zoom, row, fmt.Sprintf(format, args...))
}

// DatasetForTile returns the dataset covering one tile, or NoDataset. Row
// lookup is a binary search, the matched row's few intervals are scanned.
func (ix *Index) DatasetForTile(zoom, x, y int) DatasetID {
	li := zoom - ix.zbase - 1
	if li < 0 || li >= len(ix.levels) {
		return NoDataset
	}
	level := &ix.levels[li]
	r, found := slices.BinarySearch(level.rows, y)
	if !found {
		return NoDataset
	}
	for i := level.offsets[r]; i < level.offsets[r+1]; i++ {
		if mathhelp.BetweenInc(x, level.x0[i], level.x1[i]) {
			return level.dataset[i]
		}
	}
	return NoDataset
}

// DatasetHere returns the highest zoom with coverage at a point and the
// dataset providing it, falling back to (base zoom, base dataset). Levels are
// probed from zmax down: high-zoom coverage is the rare, local override, so
// most queries resolve at the first populated level checked. Latitudes
// outside the Mercator band are clamped, never rejected.
func (ix *Index) DatasetHere(lon, lat float64) (int, DatasetID) {
	for zoom := ix.zmax; zoom > ix.zbase; zoom-- {
		x, y := webmerc.TileAt(lon, lat, zoom)
		if dataset := ix.DatasetForTile(zoom, x, y); dataset != NoDataset {
			return zoom, dataset
		}
	}
	return ix.zbase, ix.base
}

// MaxZoomAt returns only the zoom component of DatasetHere.
func (ix *Index) MaxZoomAt(lon, lat float64) int {
	zoom, _ := ix.DatasetHere(lon, lat)
	return zoom
}

// Dataset resolves a table index to its entry.
func (ix *Index) Dataset(id DatasetID) (DatasetEntry, bool) {
	if id < 0 || int(id) >= len(ix.datasets) {
		return DatasetEntry{}, false
	}
	return ix.datasets[id], true
}

// LevelStat summarizes one decoded level, for inspection.
type LevelStat struct {
	Zoom      int
	Rows      int
	Intervals int
}

// LevelStats returns a summary per level, ascending by zoom.
func (ix *Index) LevelStats() []LevelStat {
	stats := make([]LevelStat, len(ix.levels))
	for i := range ix.levels {
		stats[i] = LevelStat{
			Zoom:      ix.zbase + 1 + i,
			Rows:      len(ix.levels[i].rows),
			Intervals: len(ix.levels[i].x0),
		}
	}
	return stats
}

// BaseZoom is the zoom at which coverage is assumed everywhere.
func (ix *Index) BaseZoom() int {
	return ix.zbase
}

// MaxZoom is the highest encoded zoom.
func (ix *Index) MaxZoom() int {
	return ix.zmax
}
