// Package latency holds the summary statistics shared by the bench tools.
package latency

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// TrimmedMean returns the mean after dropping trimPercent of the values from
// each end. data is sorted in place.
func TrimmedMean(data []float64, trimPercent float64) float64 {
	data = trim(data, trimPercent)
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// TrimmedPercentile returns the p-th percentile after trimming extremes.
func TrimmedPercentile(data []float64, p, trimPercent float64) float64 {
	return Percentile(trim(data, trimPercent), p)
}

// Percentile interpolates the p-th percentile of sorted data.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}

func trim(data []float64, trimPercent float64) []float64 {
	if len(data) == 0 {
		return data
	}
	sort.Float64s(data)
	n := int(float64(len(data)) * trimPercent / 100.0)
	if n*2 >= len(data) {
		n = len(data) / 2
		if n*2 == len(data) && n > 0 {
			n--
		}
	}
	return data[n : len(data)-n]
}

// Summary prints count, trimmed mean and percentiles in milliseconds.
func Summary(label string, data []float64) string {
	return fmt.Sprintf("%s (ms): count=%d trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f",
		label, len(data), TrimmedMean(data, 1), TrimmedPercentile(data, 50, 1),
		TrimmedPercentile(data, 90, 1), TrimmedPercentile(data, 99, 1))
}

// WriteCSV saves one latency per row under a latency_ms header.
func WriteCSV(path string, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"latency_ms"}); err != nil {
		return err
	}
	for _, d := range data {
		if err := w.Write([]string{fmt.Sprintf("%.3f", d)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
