// Package coverage builds and queries tile availability maps: given an
// inventory of overlapping lat/lon rectangles at different zoom levels, it
// answers which dataset provides the most detailed coverage for a point or
// tile. Coverage is stored per zoom level as sparse rows of dataset-tagged
// column intervals, serialized as a compact delta-coded array representation.
package coverage

import "errors"

// Format tags the row-encoded representation, distinguishing it from sibling
// rectangle-list and binary representations.
const Format = "rows.v1"

// DatasetID is an index into a map's dataset table. Ids are dense, start at 0
// and are assigned in insertion order during encoding.
type DatasetID int

// NoDataset is returned by queries for tiles without coverage.
const NoDataset DatasetID = -1

// Interval is an inclusive tile-column range [X0, X1] tagged with a dataset.
// It is only meaningful within one row of one zoom level.
type Interval struct {
	X0      int
	X1      int
	Dataset DatasetID
}

var (
	// ErrMalformedInput means an inventory item had missing or non-finite
	// bounds or zoom and no rectangle could be constructed from it.
	ErrMalformedInput = errors.New("malformed inventory input")
	// ErrFormatMismatch means a structure presented for decoding does not
	// carry the format tag this decoder supports.
	ErrFormatMismatch = errors.New("coverage format mismatch")
	// ErrStructuralInconsistency means a level's row array does not decode to
	// the counts it declares.
	ErrStructuralInconsistency = errors.New("structural inconsistency in coverage data")
)
