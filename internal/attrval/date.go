package attrval

import (
	"time"

	"github.com/roach88/candle/internal/diag"
)

const dateLayout = "2006-01-02T15:04:05"

// MSIDate encodes t as an MSI date integer. Seconds are stored halved.
func MSIDate(t time.Time) int64 {
	return int64(t.Year()-1980)<<25 |
		int64(t.Month())<<21 |
		int64(t.Day())<<16 |
		int64(t.Hour())<<11 |
		int64(t.Minute())<<5 |
		int64(t.Second()/2)
}

// Date parses YYYY-MM-DDTHH:MM:SS into an MSI date integer. Years outside
// 1980..2107 cannot be encoded.
func Date(in *Input) (int64, *diag.Message) {
	check(in)
	if in.Value == "" {
		return IllegalInteger, in.empty()
	}
	t, err := time.Parse(dateLayout, in.Value)
	if err != nil || t.Year() < 1980 || t.Year() > 2107 {
		return IllegalInteger, msg(diag.InvalidDateTimeFormat(in.Loc, in.Element, in.Attribute, in.Value))
	}
	return MSIDate(t), nil
}
