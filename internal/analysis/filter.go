package analysis

import (
	"cmp"
	"slices"
	"time"

	"github.com/terraincognita07/liberate/internal/models"
)

var RangeOptions = []int{7, 14, 30, 90}

func IsRangeOption(days int) bool {
	for _, option := range RangeOptions {
		if option == days {
			return true
		}
	}
	return false
}

// FilterRange returns the last windowDays points of an ascending history.
func FilterRange(history []MoodTrendPoint, windowDays int) []MoodTrendPoint {
	if windowDays <= 0 || len(history) == 0 {
		return []MoodTrendPoint{}
	}
	start := len(history) - windowDays
	if start < 0 {
		start = 0
	}
	filtered := make([]MoodTrendPoint, len(history)-start)
	copy(filtered, history[start:])
	return filtered
}

type datedPoint struct {
	point  MoodTrendPoint
	at     time.Time
	parsed bool
}

// sortByDate orders points ascending by date. Points whose date does not
// parse sort first, by their raw text, so a suffix window keeps real dates.
func sortByDate(points []MoodTrendPoint) {
	dated := make([]datedPoint, len(points))
	for index, point := range points {
		at, err := parsePointDate(point.Date)
		dated[index] = datedPoint{point: point, at: at, parsed: err == nil}
	}

	slices.SortStableFunc(dated, func(left, right datedPoint) int {
		switch {
		case left.parsed != right.parsed:
			if left.parsed {
				return 1
			}
			return -1
		case !left.parsed:
			return cmp.Compare(left.point.Date, right.point.Date)
		default:
			return left.at.Compare(right.at)
		}
	})

	for index := range dated {
		points[index] = dated[index].point
	}
}

func parsePointDate(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse(models.DayKeyLayout, raw)
}
