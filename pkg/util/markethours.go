package util

import "time"

// NYSE regular session bounds, exchange-local.
const (
	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	marketCloseMinute = 0
)

// MarketLocation returns the primary exchange timezone.
func MarketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// tzdata is part of the base image; a failure here is a deployment
		// problem, fall back to fixed ET without DST.
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// MarketSession returns today's open and close in the exchange timezone for
// the day containing now.
func MarketSession(now time.Time, loc *time.Location) (open, close time.Time) {
	local := now.In(loc)
	y, m, d := local.Date()
	open = time.Date(y, m, d, marketOpenHour, marketOpenMinute, 0, 0, loc)
	close = time.Date(y, m, d, marketCloseHour, marketCloseMinute, 0, 0, loc)
	return open, close
}

// InMarketHours reports whether now falls inside today's regular session.
// Weekends and exchange holidays are not special-cased: off-session days
// simply behave like out-of-hours time.
func InMarketHours(now time.Time, loc *time.Location) bool {
	open, close := MarketSession(now, loc)
	local := now.In(loc)
	return !local.Before(open) && !local.After(close)
}
