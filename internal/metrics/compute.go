// Package metrics computes distribution statistics over weekly earnings.
package metrics

import (
	"math"
	"sort"
)

// EarningsStats summarizes a chronological series of weekly earnings.
type EarningsStats struct {
	Weeks                int
	WinRate              float64 // share of weeks with earnings > 0
	Mean                 float64
	Stddev               float64 // sample stddev, 0 when fewer than 2 weeks
	P10                  float64
	Median               float64
	P90                  float64
	MaxDrawdown          float64 // worst peak-to-trough on cumulative earnings
	MaxConsecutiveLosses int     // longest run of weeks with earnings <= 0
}

// Compute derives EarningsStats from earnings in chronological order.
// The input slice is not modified.
func Compute(earnings []float64) EarningsStats {
	s := EarningsStats{Weeks: len(earnings)}
	if len(earnings) == 0 {
		return s
	}

	wins := 0
	for _, e := range earnings {
		if e > 0 {
			wins++
		}
	}
	s.WinRate = computeWinRate(wins, len(earnings))
	s.Mean = computeMean(earnings)
	s.Stddev = computeStddev(earnings, s.Mean)

	sorted := make([]float64, len(earnings))
	copy(sorted, earnings)
	sort.Float64s(sorted)
	s.P10 = computePercentile(sorted, 0.10)
	s.Median = computePercentile(sorted, 0.50)
	s.P90 = computePercentile(sorted, 0.90)

	s.MaxDrawdown = computeMaxDrawdown(earnings)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(earnings)
	return s
}

func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev uses the n-1 denominator.
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown returns MAX(peak_cumulative - trough_cumulative).
// The running peak starts at 0, so an opening loss counts as drawdown.
func computeMaxDrawdown(values []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, v := range values {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

func computeMaxConsecutiveLosses(values []float64) int {
	maxStreak, current := 0, 0
	for _, v := range values {
		if v <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
