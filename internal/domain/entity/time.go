package entity

import "time"

// LocalTime is an instant read out in an officer's fixed UTC offset
type LocalTime struct {
	Time    time.Time
	Hour    int // 0..23
	Weekday int // 0..6, 0 = Sunday
	Day     int // day of month
}
