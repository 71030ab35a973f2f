package fins

import (
	"context"
	"time"

	"github.com/havrevik/finsgo/mapping"
)

// ClockReading is the decoded result of a Clock Read command.
type ClockReading struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	Weekday time.Weekday
}

// Time converts r to a time.Time in the local zone. Clock Read's year
// byte is a two-digit BCD value; the teacher's convention (and the
// published FINS reference) treats 00-59 as 2000-2059 and 60-99 as
// 1960-1999.
func (r ClockReading) Time() time.Time {
	year := r.Year
	if year < 60 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, time.Month(r.Month), r.Day, r.Hour, r.Minute, r.Second, 0, time.Local)
}

// decodeBCDByte decodes one packed-BCD byte into its 0-99 integer
// value, grounded on the teacher's error.go BCD error kinds.
func decodeBCDByte(b byte) (int, error) {
	hi := b >> 4
	lo := b & 0x0F
	if hi > 9 || lo > 9 {
		return 0, BCDError{Msg: "byte contains a non-BCD nibble"}
	}
	return int(hi)*10 + int(lo), nil
}

// ReadClock issues a Clock Read and decodes the BCD-encoded year,
// month, day, hour, minute, second and weekday that follow.
func (c *Client) ReadClock(ctx context.Context) (ClockReading, error) {
	resp, err := c.command(ctx, mapping.CommandCodeClockRead, ClockReadBody(), nil)
	if err != nil {
		return ClockReading{}, err
	}
	if !resp.Succeeded() {
		return ClockReading{}, EndCodeError{Response: &resp}
	}
	if len(resp.Data) < 7 {
		return ClockReading{}, ProtocolError{Reason: "short clock read payload"}
	}

	var reading ClockReading
	fields := []*int{&reading.Year, &reading.Month, &reading.Day, &reading.Hour, &reading.Minute, &reading.Second}
	for i, f := range fields {
		v, err := decodeBCDByte(resp.Data[i])
		if err != nil {
			return ClockReading{}, err
		}
		*f = v
	}
	weekday, err := decodeBCDByte(resp.Data[6])
	if err != nil {
		return ClockReading{}, err
	}
	reading.Weekday = time.Weekday(weekday % 7)
	return reading, nil
}
