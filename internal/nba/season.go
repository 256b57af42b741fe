package nba

import (
	"fmt"
	"time"
)

// dateLayout is the date format the stats API expects.
const dateLayout = "2006-01-02"

// DateRange is an inclusive range of game dates, formatted as YYYY-MM-DD.
type DateRange struct {
	From string
	To   string
}

// CurrentSeason returns the season containing now, such as "2024-25".
// A new season starts in October.
func CurrentSeason(now time.Time) string {
	year := now.UTC().Year()
	if now.UTC().Month() < time.October {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// DateRangeFor returns the range of recent games selected by timeRange:
// "week", "2weeks" or "month". Any other value selects the whole season and
// reports false.
func DateRangeFor(timeRange string, now time.Time) (DateRange, bool) {
	var days int
	switch timeRange {
	case "week":
		days = 7
	case "2weeks":
		days = 14
	case "month":
		days = 30
	default:
		return DateRange{}, false
	}

	end := now.UTC()
	return DateRange{
		From: end.AddDate(0, 0, -days).Format(dateLayout),
		To:   end.Format(dateLayout),
	}, true
}
