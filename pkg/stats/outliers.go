package stats

import "math"

const (
	// DefaultZScoreThreshold flags samples more than two standard
	// deviations from the mean.
	DefaultZScoreThreshold = 2.0

	// DefaultIQRMultiplier is the usual Tukey fence multiplier.
	DefaultIQRMultiplier = 1.5
)

// Confidence levels assigned by Classify.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// ZScoreOutliers returns the indices of samples whose absolute z-score
// exceeds the threshold. Fewer than 3 samples or zero spread cannot support
// the method, so those cases return nil.
func ZScoreOutliers(samples []float64, threshold float64) []int {
	if len(samples) < 3 {
		return nil
	}

	mean := Mean(samples)
	std := StdDev(samples)
	if std == 0 {
		return nil
	}

	var outliers []int
	for i, x := range samples {
		if math.Abs(x-mean)/std > threshold {
			outliers = append(outliers, i)
		}
	}
	return outliers
}

// IQROutliers returns the indices of samples outside the Tukey fences
// [Q1 - m*IQR, Q3 + m*IQR]. Fewer than 4 samples cannot support quartiles,
// so that case returns nil.
func IQROutliers(samples []float64, multiplier float64) []int {
	if len(samples) < 4 {
		return nil
	}

	q1 := Percentile(samples, 25)
	q3 := Percentile(samples, 75)
	iqr := q3 - q1
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	var outliers []int
	for i, x := range samples {
		if x < lower || x > upper {
			outliers = append(outliers, i)
		}
	}
	return outliers
}

// Intersect returns the indices present in both slices, ascending.
func Intersect(a, b []int) []int {
	inB := make(map[int]bool, len(b))
	for _, i := range b {
		inB[i] = true
	}

	var common []int
	for _, i := range a {
		if inB[i] {
			common = append(common, i)
		}
	}
	return common
}

// Classify merges the two methods' verdicts: the intersection carries high
// confidence, indices flagged by exactly one method carry medium confidence.
func Classify(zscore, iqr []int) map[int]string {
	confidence := make(map[int]string)
	for _, i := range zscore {
		confidence[i] = ConfidenceMedium
	}
	for _, i := range iqr {
		confidence[i] = ConfidenceMedium
	}
	for _, i := range Intersect(zscore, iqr) {
		confidence[i] = ConfidenceHigh
	}
	return confidence
}
