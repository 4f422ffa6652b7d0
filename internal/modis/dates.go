package modis

import (
	"sort"
	"time"

	"github.com/airbusgeo/modis/internal/utils"
)

const dateLayout = "2006-01-02"

const day = 24 * time.Hour

// FirstImageryDate is the first day of MODIS imagery (Terra)
var FirstImageryDate = time.Date(2000, 2, 24, 0, 0, 0, 0, time.UTC)

// Yesterday returns the most recent instant for which imagery can be expected,
// the same time of day as now, one day before, in UTC.
func Yesterday(now time.Time) time.Time {
	return now.UTC().Add(-day)
}

// ClampToPast shifts an interval ending after yesterday backwards so that it ends yesterday.
// The length of the interval is kept.
func ClampToPast(spec TimeSpec, now time.Time) TimeSpec {
	yesterday := Yesterday(now)
	if shift := spec.End.Sub(yesterday); shift > 0 {
		spec.Start = spec.Start.Add(-shift)
		spec.End = spec.End.Add(-shift)
	}
	return spec
}

// AvailableDays returns the number of days of imagery, from FirstImageryDate to yesterday
func AvailableDays(now time.Time) int {
	days := int(Yesterday(now).Sub(FirstImageryDate)/day) + 1
	return utils.MaxI(days, 1)
}

// ResolveDates returns the ascending list of dates (YYYY-MM-DD) to query:
//   - spec == nil: the <limit> days ending yesterday
//   - instant: the date of the instant
//   - interval: the newest <limit> dates of the interval, once clamped to the past
func ResolveDates(spec *TimeSpec, limit int, now time.Time) ([]string, error) {
	if limit < 1 {
		return nil, NewInputParametersError("limit must be a positive integer, got %d", limit)
	}
	if available := AvailableDays(now); limit > available {
		return nil, NewInputParametersError("limit %d exceeds the %d days of imagery since %s", limit, available, FirstImageryDate.Format(dateLayout))
	}

	if spec == nil {
		now = now.UTC()
		dates := make([]string, 0, limit)
		for i := limit; i >= 1; i-- {
			dates = append(dates, now.AddDate(0, 0, -i).Format(dateLayout))
		}
		return dates, nil
	}

	if !spec.IsInterval {
		return []string{spec.Start.Format(dateLayout)}, nil
	}

	clamped := ClampToPast(*spec, now)
	span := clamped.End.Sub(clamped.Start)
	if span < 0 {
		return nil, NewInputParametersError("interval ends before it starts")
	}
	daysInInterval := int(span / day)
	if span%day != 0 {
		daysInInterval++
	}
	if daysInInterval == 0 {
		daysInInterval = 1
	}

	// only the newest <limit> dates are kept
	n := utils.MinI(daysInInterval, limit)
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, clamped.End.Add(-time.Duration(i)*day).Format(dateLayout))
	}
	sort.Strings(dates)
	return dates, nil
}
