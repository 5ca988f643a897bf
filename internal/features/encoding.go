package features

import (
	"strings"
	"time"
)

// FrequencyMap maps a categorical value to its relative frequency.
type FrequencyMap map[string]float64

// NewFrequencyMap counts the valid values and normalises by their total, so the
// map sums to 1 whenever at least one value is valid. Missing values are not
// counted.
func NewFrequencyMap(values []Text) FrequencyMap {
	counts := make(map[string]int)
	total := 0
	for _, v := range values {
		if !v.Valid {
			continue
		}
		counts[v.Value]++
		total++
	}

	freq := make(FrequencyMap, len(counts))
	for value, n := range counts {
		freq[value] = float64(n) / float64(total)
	}
	return freq
}

// Lookup returns the frequency of v; missing and unseen values map to 0.
func (m FrequencyMap) Lookup(v Text) float64 {
	if !v.Valid {
		return 0
	}
	return m[v.Value]
}

// ItemCodePrefix returns the text before the first hyphen. Missing codes share
// a single empty prefix.
func ItemCodePrefix(code Text) Text {
	if !code.Valid {
		return Text{Valid: true}
	}
	prefix, _, _ := strings.Cut(code.Value, "-")
	return Text{Value: prefix, Valid: true}
}

// dateLayouts are tried in order: day-first with "/", "-" or "." and a four
// or two digit year, then year-first with "-" or "/", each with optional time.
var dateLayouts = func() []string {
	times := []string{" 15:04:05", " 15:04", ""}
	var layouts []string
	for _, sep := range []string{"/", "-", "."} {
		for _, year := range []string{"2006", "06"} {
			for _, clock := range times {
				layouts = append(layouts, "2"+sep+"1"+sep+year+clock)
			}
		}
	}
	for _, sep := range []string{"-", "/"} {
		for _, clock := range append([]string{"T15:04:05"}, times...) {
			layouts = append(layouts, "2006"+sep+"1"+sep+"2"+clock)
		}
	}
	return layouts
}()

// ParseDayFirst parses a day-first date. ok is false when no layout matches.
func ParseDayFirst(s Text) (t time.Time, ok bool) {
	if !s.Valid {
		return time.Time{}, false
	}
	value := strings.TrimSpace(s.Value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Calendar holds the date-derived features. The zero value stands for an unparseable date.
type Calendar struct {
	Year      int64
	Month     int64
	DayOfWeek int64 // 0 = Monday
	IsWeekend int64
	Quarter   int64
}

// CalendarOf derives calendar features from t.
func CalendarOf(t time.Time) Calendar {
	dow := int64((t.Weekday() + 6) % 7)
	weekend := int64(0)
	if dow >= 5 {
		weekend = 1
	}
	month := int64(t.Month())
	return Calendar{
		Year:      int64(t.Year()),
		Month:     month,
		DayOfWeek: dow,
		IsWeekend: weekend,
		Quarter:   (month-1)/3 + 1,
	}
}
