package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZScoreOutliers(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    []int
	}{
		{
			name:    "too few samples",
			samples: []float64{100, 10},
			want:    nil,
		},
		{
			name:    "identical samples have zero spread",
			samples: []float64{50, 50, 50, 50},
			want:    nil,
		},
		{
			name:    "single slow sample flagged",
			samples: []float64{100, 100, 100, 100, 100, 10},
			want:    []int{5},
		},
		{
			name:    "healthy spread flags nothing",
			samples: []float64{95, 98, 100, 102, 105},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ZScoreOutliers(tt.samples, DefaultZScoreThreshold)
			assert.Equal(t, tt.want, got)

			// Pure function: a second call over the same data agrees.
			assert.Equal(t, got, ZScoreOutliers(tt.samples, DefaultZScoreThreshold))
		})
	}
}

func TestIQROutliers(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    []int
	}{
		{
			name:    "too few samples",
			samples: []float64{100, 100, 10},
			want:    nil,
		},
		{
			name:    "identical samples flag nothing",
			samples: []float64{50, 50, 50, 50, 50},
			want:    nil,
		},
		{
			name:    "single slow sample flagged",
			samples: []float64{100, 100, 100, 100, 100, 10},
			want:    []int{5},
		},
		{
			name:    "fast outlier flagged too",
			samples: []float64{10, 11, 10, 12, 11, 95},
			want:    []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IQROutliers(tt.samples, DefaultIQRMultiplier))
		})
	}
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []int{2}, Intersect([]int{1, 2}, []int{2, 3}))
	assert.Nil(t, Intersect([]int{1}, []int{2}))
	assert.Nil(t, Intersect(nil, []int{1, 2}))
}

func TestClassify(t *testing.T) {
	confidence := Classify([]int{1, 2}, []int{2, 3})

	assert.Equal(t, map[int]string{
		1: ConfidenceMedium,
		2: ConfidenceHigh,
		3: ConfidenceMedium,
	}, confidence)

	assert.Empty(t, Classify(nil, nil))
}

func TestMethodsAgreeOnObviousOutlier(t *testing.T) {
	// A node running at a tenth of its peers' bandwidth must be caught by
	// both methods, which is what upgrades it to high confidence.
	samples := []float64{100, 100, 100, 100, 100, 10}

	z := ZScoreOutliers(samples, DefaultZScoreThreshold)
	iqr := IQROutliers(samples, DefaultIQRMultiplier)

	assert.Equal(t, []int{5}, Intersect(z, iqr))
	assert.Equal(t, ConfidenceHigh, Classify(z, iqr)[5])
}
