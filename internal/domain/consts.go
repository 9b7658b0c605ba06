package domain

// Weekday numbers as used by the flag store (0 = Sunday, like time.Weekday)
const (
	Sunday    = 0
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
)

// WeekdayNames maps weekday numbers to their English names
var WeekdayNames = map[int]string{
	Sunday:    "Sunday",
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

// DefaultTriggerHours are the local hours at which an active flash event is announced
var DefaultTriggerHours = []int{11, 15, 19, 20, 22}

// DefaultChimeKeyword is the word that starts a broadcast tick when posted in the chime channel
const DefaultChimeKeyword = "chime"

// ConfirmToken must be passed to destructive commands
const ConfirmToken = "confirm"

// Key prefixes used in the persistence collaborator
const (
	OfficerKeyPrefix = "officer:"
	FlagKeyPrefix    = "flashevent:"
)

// ValidWeekday reports whether day is in [Sunday, Saturday]
func ValidWeekday(day int) bool {
	return day >= Sunday && day <= Saturday
}
