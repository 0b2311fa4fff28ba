package database

import (
	"strconv"
)

// Filter selects person records. All set fields must pass; zero values are unset.
type Filter struct {
	Camera      string  // record must have a sighting on this camera
	MinDuration float64 // total_time_sec lower bound
	MaxDuration float64 // total_time_sec upper bound
}

// ParseFilter builds a Filter from loosely typed query parameters.
// Unknown keys and malformed numbers are ignored.
func ParseFilter(params map[string]string) Filter {
	var f Filter
	for key, value := range params {
		switch key {
		case "camera":
			f.Camera = value
		case "min_duration":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				f.MinDuration = v
			}
		case "max_duration":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				f.MaxDuration = v
			}
		}
	}
	return f
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec *PersonRecord) bool {
	if f.Camera != "" {
		if _, ok := rec.Cameras[f.Camera]; !ok {
			return false
		}
	}
	if f.MinDuration != 0 && rec.TotalTimeSec < f.MinDuration {
		return false
	}
	if f.MaxDuration != 0 && rec.TotalTimeSec > f.MaxDuration {
		return false
	}
	return true
}
