package analytics

import (
	"math"
	"slices"
)

// ComputeDistanceStats summarises a set of path distances. The mean is
// rounded to two decimals and every statistic is zero for an empty set.
func ComputeDistanceStats(distances []float64) DistanceStats {
	stats := DistanceStats{Count: len(distances), Histogram: []HistogramBin{}}
	if len(distances) == 0 {
		return stats
	}

	freq := make(map[float64]int)
	stats.Min, stats.Max = distances[0], distances[0]
	var sum float64
	for _, d := range distances {
		stats.Min = min(stats.Min, d)
		stats.Max = max(stats.Max, d)
		sum += d
		freq[d]++
	}
	stats.Mean = math.Round(sum/float64(len(distances))*100) / 100

	keys := make([]float64, 0, len(freq))
	for d := range freq {
		keys = append(keys, d)
	}
	slices.Sort(keys)
	for _, d := range keys {
		stats.Histogram = append(stats.Histogram, HistogramBin{Distance: d, Frequency: freq[d]})
	}
	return stats
}
