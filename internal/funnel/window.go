package funnel

import (
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// Boundary selects which instant of a calendar day a conversion targets.
type Boundary int

const (
	// StartOfDay is 00:00:00.000 local time.
	StartOfDay Boundary = iota
	// EndOfDay is 23:59:59.999999 local time.
	EndOfDay
)

// EpochMillis converts a YYYY-MM-DD date, interpreted in loc, to the
// millisecond epoch instant at the requested day boundary. The conversion
// goes through the zone's real UTC offset; it must not assume offset zero.
func EpochMillis(date string, b Boundary, loc *time.Location) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return 0, eris.Wrap(err, "funnel: parse date")
	}
	if b == EndOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t.UnixMilli(), nil
}

// Window is an inclusive calendar date range in a fixed local zone.
type Window struct {
	From string
	To   string
	Loc  *time.Location
}

// Range returns the window's epoch-millisecond bounds for API filters.
// The end date is widened by one full day before conversion so the API's
// comparison semantics cannot truncate records on the boundary day.
func (w Window) Range() (startMS, endMS int64, err error) {
	startMS, err = EpochMillis(w.From, StartOfDay, w.Loc)
	if err != nil {
		return 0, 0, err
	}

	to, err := time.ParseInLocation(DateLayout, w.To, w.Loc)
	if err != nil {
		return 0, 0, eris.Wrap(err, "funnel: parse date")
	}
	widened := to.AddDate(0, 0, 1).Format(DateLayout)
	endMS, err = EpochMillis(widened, EndOfDay, w.Loc)
	if err != nil {
		return 0, 0, err
	}
	return startMS, endMS, nil
}
