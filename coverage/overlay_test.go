package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_overlay(t *testing.T) {
	tests := []struct {
		name     string
		existing []Interval
		x0, x1   int
		dataset  DatasetID
		want     []Interval
	}{
		{
			name:    "into empty row",
			x0:      5, x1: 10, dataset: 0,
			want: []Interval{{5, 10, 0}},
		},
		{
			name:     "entirely left of existing",
			existing: []Interval{{20, 30, 1}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{5, 10, 0}, {20, 30, 1}},
		},
		{
			name:     "entirely right of existing",
			existing: []Interval{{0, 3, 1}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{0, 3, 1}, {5, 10, 0}},
		},
		{
			name:     "subsumes multiple without fragmenting",
			existing: []Interval{{5, 6, 1}, {8, 9, 2}},
			x0:       4, x1: 10, dataset: 0,
			want: []Interval{{4, 10, 0}},
		},
		{
			name:     "left remainder survives",
			existing: []Interval{{0, 10, 1}},
			x0:       5, x1: 15, dataset: 0,
			want: []Interval{{0, 4, 1}, {5, 15, 0}},
		},
		{
			name:     "right remainder survives",
			existing: []Interval{{5, 20, 1}},
			x0:       0, x1: 10, dataset: 0,
			want: []Interval{{0, 10, 0}, {11, 20, 1}},
		},
		{
			name:     "splits a straddling interval in two",
			existing: []Interval{{0, 20, 1}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{0, 4, 1}, {5, 10, 0}, {11, 20, 1}},
		},
		{
			name:     "merges with same-dataset neighbour",
			existing: []Interval{{0, 4, 0}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{0, 10, 0}},
		},
		{
			name:     "merges with same-dataset neighbours on both sides",
			existing: []Interval{{0, 4, 0}, {12, 20, 0}},
			x0:       5, x1: 11, dataset: 0,
			want: []Interval{{0, 20, 0}},
		},
		{
			name:     "adjacent different datasets stay apart",
			existing: []Interval{{0, 4, 1}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{0, 4, 1}, {5, 10, 0}},
		},
		{
			name:     "touching edge trims to remainder",
			existing: []Interval{{0, 5, 1}},
			x0:       5, x1: 10, dataset: 2,
			want: []Interval{{0, 4, 1}, {5, 10, 2}},
		},
		{
			name:     "same dataset overlap extends",
			existing: []Interval{{5, 10, 0}},
			x0:       8, x1: 15, dataset: 0,
			want: []Interval{{5, 15, 0}},
		},
		{
			name:     "idempotent restamp",
			existing: []Interval{{5, 10, 0}},
			x0:       5, x1: 10, dataset: 0,
			want: []Interval{{5, 10, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := append([]Interval(nil), tt.existing...)
			got := overlay(existing, tt.x0, tt.x1, tt.dataset)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.existing, existing, "overlay must not mutate its input")
			assertRowInvariant(t, got)
		})
	}
}

// assertRowInvariant checks the row invariant: intervals sorted ascending by
// start column, pairwise disjoint, and no two neighbours sharing a dataset.
func assertRowInvariant(t *testing.T, ivs []Interval) {
	t.Helper()
	for i, iv := range ivs {
		assert.LessOrEqual(t, iv.X0, iv.X1, "interval %d is inverted", i)
		if i == 0 {
			continue
		}
		assert.Greater(t, iv.X0, ivs[i-1].X1, "intervals %d and %d overlap or are unsorted", i-1, i)
		if iv.X0 == ivs[i-1].X1+1 {
			assert.NotEqual(t, ivs[i-1].Dataset, iv.Dataset, "adjacent intervals %d and %d share a dataset", i-1, i)
		}
	}
}
