package coverage

// overlay stamps the window [x0, x1] with dataset onto a row's interval list,
// last write wins. The input must be sorted, disjoint and maximally merged;
// the output is a new list with the same invariant. Existing intervals that
// straddle a window edge keep their remainder under their original dataset,
// intervals inside the window are subsumed by one new interval.
func overlay(ivs []Interval, x0, x1 int, dataset DatasetID) []Interval {
	out := make([]Interval, 0, len(ivs)+2)

	i := 0
	for ; i < len(ivs) && ivs[i].X1 < x0; i++ {
		out = append(out, ivs[i])
	}
	if i < len(ivs) && ivs[i].X0 < x0 {
		out = append(out, Interval{ivs[i].X0, x0 - 1, ivs[i].Dataset})
	}

	out = append(out, Interval{x0, x1, dataset})

	for ; i < len(ivs) && ivs[i].X1 <= x1; i++ {
	}
	if i < len(ivs) && ivs[i].X0 <= x1 {
		out = append(out, Interval{x1 + 1, ivs[i].X1, ivs[i].Dataset})
		i++
	}
	out = append(out, ivs[i:]...)

	return mergeAdjacent(out)
}

// mergeAdjacent merges neighbouring intervals that share a dataset, in place.
func mergeAdjacent(ivs []Interval) []Interval {
	merged := ivs[:0]
	for _, iv := range ivs {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Dataset == iv.Dataset && last.X1+1 == iv.X0 {
				last.X1 = iv.X1
				continue
			}
		}
		merged = append(merged, iv)
	}
	return merged
}
