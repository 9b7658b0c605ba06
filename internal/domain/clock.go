package domain

import (
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
)

// Clock supplies the current instant. Services take a Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// LocalTimeAt shifts nowUTC by a fixed whole-hour offset and reads out the
// officer's wall-clock fields. Offsets are not checked against real zones and
// no DST rules apply.
func LocalTimeAt(nowUTC time.Time, offsetHours int) entity.LocalTime {
	shifted := nowUTC.UTC().Add(time.Duration(offsetHours) * time.Hour)
	return entity.LocalTime{
		Time:    shifted,
		Hour:    shifted.Hour(),
		Weekday: int(shifted.Weekday()),
		Day:     shifted.Day(),
	}
}
