// Package stats computes descriptive statistics over numeric columns.
// Series arithmetic is delegated to gota; quartiles use the linear
// interpolation rule of common dataframe libraries.
package stats

import (
	"math"
	"sort"

	"github.com/go-gota/gota/series"

	"crimestats/internal/dataset"
)

// Description holds the describe() measures of one numeric column.
// Measures that are undefined for the input (e.g. std of one value) are NaN.
type Description struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// NonNull returns the numbers held by a column, skipping nulls
func NonNull(col *dataset.Column) []float64 {
	values := make([]float64, 0, col.Len())
	for _, v := range col.Values {
		if f, ok := v.Num(); ok {
			values = append(values, f)
		}
	}
	return values
}

// Mean returns the arithmetic mean, or NaN for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return series.Floats(values).Mean()
}

// Median returns the median, or NaN for no values
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return series.Floats(values).Median()
}

// Describe computes count, mean, sample standard deviation, min, quartiles and max.
func Describe(values []float64) Description {
	d := Description{
		Count: len(values),
		Mean:  math.NaN(),
		Std:   math.NaN(),
		Min:   math.NaN(),
		Q25:   math.NaN(),
		Q50:   math.NaN(),
		Q75:   math.NaN(),
		Max:   math.NaN(),
	}
	if len(values) == 0 {
		return d
	}

	s := series.Floats(values)
	d.Mean = s.Mean()
	d.Min = s.Min()
	d.Max = s.Max()
	if len(values) > 1 {
		d.Std = s.StdDev()
	}

	sorted := s.Float()
	sort.Float64s(sorted)
	d.Q25 = Quantile(sorted, 0.25)
	d.Q50 = Quantile(sorted, 0.50)
	d.Q75 = Quantile(sorted, 0.75)
	return d
}

// Quantile returns the q-th quantile of sorted values, interpolating
// linearly between the two closest ranks: position (n-1)*q.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
