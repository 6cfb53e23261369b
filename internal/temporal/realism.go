package temporal

import "time"

const daysPerYear = 365.25

// AgeYears is the fractional age in years between birth and now.
func AgeYears(birth, now time.Time) float64 {
	return now.Sub(birth).Hours() / 24 / daysPerYear
}

// CompletedYears is the whole number of birthdays passed by now.
func CompletedYears(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// IsFuture reports whether d lies after the day of now.
func IsFuture(d, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.After(today)
}

// DaysOld is the number of whole days between d and now; negative for future dates.
func DaysOld(d, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(d).Hours() / 24)
}
