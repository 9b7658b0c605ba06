package entity

import "strconv"

// Officer is an enrolled team member. UTCOffset is a whole number of hours and
// is taken as given, even outside the ±12 range of real zones.
type Officer struct {
	ID        string
	Name      string
	UTCOffset int
}

// OffsetString formats the offset with an explicit sign, e.g. "+5" or "-4"
func (o Officer) OffsetString() string {
	return FormatOffset(o.UTCOffset)
}

func FormatOffset(offset int) string {
	if offset < 0 {
		return strconv.Itoa(offset)
	}
	return "+" + strconv.Itoa(offset)
}
