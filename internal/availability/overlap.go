package availability

import "room_booking/internal/calendar"

// Overlaps treats both intervals as half-open [from, to): touching ends do not overlap.
func Overlaps(aFrom, aTo, bFrom, bTo calendar.Day) bool {
	return calendar.Less(aFrom, bTo) && calendar.Less(bFrom, aTo)
}

// Contains treats the container as inclusive [from, to], unlike Overlaps.
func Contains(containerFrom, containerTo, from, to calendar.Day) bool {
	return calendar.LessOrEqual(containerFrom, from) && calendar.GreaterOrEqual(containerTo, to)
}
