package coverage

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/umpc/go-sortedmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/tilecov/webmerc"
)

// MaxSupportedZoom bounds the zoom levels a map can encode.
const MaxSupportedZoom = 30

// Builder accumulates inventory rectangles into per-level sparse row maps and
// produces the serialized TileAvailabilityMap. It is the single build context
// of an encode pass: create one, add every item in inventory order, build
// once, discard. It is not safe for concurrent use and not needed to be.
type Builder struct {
	zbase    int
	zmax     int
	ids      *orderedmap.OrderedMap[string, DatasetID]
	datasets []DatasetEntry
	base     DatasetID
	levels   map[int]*sortedmap.SortedMap // zoom -> row index -> []Interval
}

// NewBuilder starts an encode pass. Coverage at or below zbase is not encoded
// explicitly, it is represented by the base dataset (see SetBase).
func NewBuilder(zbase int) *Builder {
	return &Builder{
		zbase:  zbase,
		zmax:   zbase,
		ids:    orderedmap.New[string, DatasetID](),
		base:   NoDataset,
		levels: make(map[int]*sortedmap.SortedMap),
	}
}

// AddItem overlays one inventory rectangle onto the map under construction,
// at the item's own maximum zoom. box is [minLon, minLat, maxLon, maxLat] in
// degrees, bounds inclusive; minLon > maxLon means the rectangle crosses the
// antimeridian. Overlaying is strictly last write wins: where this rectangle
// overlaps earlier coverage at the same zoom, this item's dataset replaces it.
// Entries are interned by name; the first occurrence's metadata is kept.
func (b *Builder) AddItem(entry DatasetEntry, box geom.Extent, maxZoom int) error {
	if err := checkItem(entry, box, maxZoom); err != nil {
		return err
	}
	id := b.intern(entry)
	if maxZoom > b.zmax {
		b.zmax = maxZoom
	}
	if maxZoom <= b.zbase {
		return nil // subsumed by the base zoom, nothing to stamp
	}

	rows := b.levelRows(maxZoom)
	y0, y1 := webmerc.RowRange(box.MinY(), box.MaxY(), maxZoom)
	colRanges := webmerc.ColumnRanges(box.MinX(), box.MaxX(), maxZoom)
	for y := y0; y <= y1; y++ {
		for _, cr := range colRanges {
			if cr.X1 < cr.X0 {
				continue // degenerate after clamping
			}
			b.stamp(rows, y, cr.X0, cr.X1, id)
		}
	}
	return nil
}

// SetBase declares the dataset assumed to cover the whole world at the base
// zoom. It must have been added as an item first.
func (b *Builder) SetBase(name string) error {
	id, ok := b.ids.Get(name)
	if !ok {
		return fmt.Errorf("%w: base dataset %q not in inventory", ErrMalformedInput, name)
	}
	b.base = id
	return nil
}

// Build produces the serialized structure. The builder is of no further use
// afterwards.
func (b *Builder) Build() *TileAvailabilityMap {
	m := &TileAvailabilityMap{
		Format:   Format,
		ZBase:    b.zbase,
		ZMax:     b.zmax,
		Datasets: b.datasets,
		Levels:   make([]Level, 0, b.zmax-b.zbase),
	}
	if b.base != NoDataset {
		base := int(b.base)
		m.Base = &base
	}
	for zoom := b.zbase + 1; zoom <= b.zmax; zoom++ {
		m.Levels = append(m.Levels, Level{Zoom: zoom, Rows: encodeRows(b.levels[zoom])})
	}
	return m
}

func checkItem(entry DatasetEntry, box geom.Extent, maxZoom int) error {
	if entry.Name == "" {
		return fmt.Errorf("%w: item without a dataset name", ErrMalformedInput)
	}
	for _, ord := range box {
		if math.IsNaN(ord) || math.IsInf(ord, 0) {
			return fmt.Errorf("%w: item %q has non-finite bounds %v", ErrMalformedInput, entry.Name, box)
		}
	}
	if box.MinY() > box.MaxY() {
		return fmt.Errorf("%w: item %q has min_lat %v above max_lat %v", ErrMalformedInput, entry.Name, box.MinY(), box.MaxY())
	}
	if maxZoom < 0 || maxZoom > MaxSupportedZoom {
		return fmt.Errorf("%w: item %q has max zoom %d outside 0..%d", ErrMalformedInput, entry.Name, maxZoom, MaxSupportedZoom)
	}
	return nil
}

func (b *Builder) intern(entry DatasetEntry) DatasetID {
	if id, ok := b.ids.Get(entry.Name); ok {
		return id
	}
	id := DatasetID(len(b.datasets))
	b.ids.Set(entry.Name, id)
	b.datasets = append(b.datasets, entry)
	return id
}

// rowRec is what a level's sorted map stores per row. The map orders its
// entries by comparing values, so the row index rides along with the
// intervals.
type rowRec struct {
	y   int
	ivs []Interval
}

func (b *Builder) levelRows(zoom int) *sortedmap.SortedMap {
	rows, ok := b.levels[zoom]
	if !ok {
		rows = sortedmap.New(4, func(x, y interface{}) bool {
			return x.(rowRec).y < y.(rowRec).y
		})
		b.levels[zoom] = rows
	}
	return rows
}

func (b *Builder) stamp(rows *sortedmap.SortedMap, y, x0, x1 int, id DatasetID) {
	var ivs []Interval
	if existing, ok := rows.Get(y); ok {
		ivs = existing.(rowRec).ivs
	}
	rows.Replace(y, rowRec{y, overlay(ivs, x0, x1, id)})
}

// encodeRows flattens a level's sparse row map into the delta-coded array
// representation of the wire format: rowDelta, intervalCount, then colGap,
// length, datasetId per interval. The first row delta is the absolute row
// index; column gaps count from the column right after the previous interval
// in the same row, starting at column 0. Clustered coverage keeps all these
// integers small.
func encodeRows(rows *sortedmap.SortedMap) []int {
	encoded := []int{}
	if rows == nil {
		return encoded
	}
	prevRow := 0
	for _, key := range rows.Keys() {
		record, _ := rows.Get(key)
		rec := record.(rowRec)
		encoded = append(encoded, rec.y-prevRow, len(rec.ivs))
		cursor := 0
		for _, iv := range rec.ivs {
			encoded = append(encoded, iv.X0-cursor, iv.X1-iv.X0+1, int(iv.Dataset))
			cursor = iv.X1 + 1
		}
		prevRow = rec.y
	}
	return encoded
}
