package latency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 3.0, Percentile(data, 50))
	assert.Equal(t, 5.0, Percentile(data, 100))
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestTrimmedMean_DropsExtremes(t *testing.T) {
	data := make([]float64, 0, 100)
	for i := 0; i < 98; i++ {
		data = append(data, 10)
	}
	data = append(data, 0, 1000)

	assert.InDelta(t, 10.0, TrimmedMean(data, 1), 0.001)
}

func TestTrimmedMean_SmallInputs(t *testing.T) {
	assert.Equal(t, 0.0, TrimmedMean(nil, 1))
	assert.Equal(t, 7.0, TrimmedMean([]float64{7}, 50))
	assert.Equal(t, 2.5, TrimmedMean([]float64{2, 3}, 50))
}
