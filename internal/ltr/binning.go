package ltr

import "sort"

// featureBins holds histogram cut points for one feature
// bin(x) = number of cuts <= x, so bin k covers [cuts[k-1], cuts[k])
type featureBins struct {
	cuts []float64
}

// numBins returns the number of histogram buckets
func (b featureBins) numBins() int {
	return len(b.cuts) + 1
}

// bin maps a value to its bucket
func (b featureBins) bin(x float64) int {
	return sort.Search(len(b.cuts), func(i int) bool { return b.cuts[i] > x })
}

// buildBins derives quantile cut points from training values
// With at most maxBin distinct values every distinct value starts its own bucket.
func buildBins(values []float64, maxBin int) featureBins {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) <= 1 {
		return featureBins{}
	}

	if len(distinct) <= maxBin {
		return featureBins{cuts: distinct[1:]}
	}

	// 분위수 컷: 중복 제거, 최소값은 컷에서 제외
	cuts := make([]float64, 0, maxBin-1)
	n := len(sorted)
	for b := 1; b < maxBin; b++ {
		c := sorted[b*n/maxBin]
		if c == sorted[0] {
			continue
		}
		if len(cuts) > 0 && c == cuts[len(cuts)-1] {
			continue
		}
		cuts = append(cuts, c)
	}
	return featureBins{cuts: cuts}
}
