package analysis

import "math"

type Band int

const (
	BandGood Band = iota
	BandMild
	BandModerate
	BandHigh
	BandSevere
)

type Metric string

const (
	MetricDepression Metric = "depression"
	MetricAnxiety    Metric = "anxiety"
)

// BandOf buckets a 0-10 score into half-open bands of width two; 10 itself
// is severe. Out of range scores clamp: below zero and NaN are good, above
// ten is severe.
func BandOf(score float64) Band {
	switch {
	case math.IsNaN(score) || score < 2:
		return BandGood
	case score < 4:
		return BandMild
	case score < 6:
		return BandModerate
	case score < 8:
		return BandHigh
	default:
		return BandSevere
	}
}

func (band Band) String() string {
	switch band {
	case BandMild:
		return "mild"
	case BandModerate:
		return "moderate"
	case BandHigh:
		return "high"
	case BandSevere:
		return "severe"
	default:
		return "good"
	}
}

// Label names the band for a metric; anxiety calls its lowest band calm.
func (band Band) Label(metric Metric) string {
	if band == BandGood && metric == MetricAnxiety {
		return "calm"
	}
	return band.String()
}

func (band Band) Color() string {
	switch band {
	case BandMild:
		return "#FFD93D"
	case BandModerate:
		return "#FFA500"
	case BandHigh:
		return "#FF6B6B"
	case BandSevere:
		return "#D32F2F"
	default:
		return "#6BCF7F"
	}
}
