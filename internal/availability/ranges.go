package availability

import (
	"fmt"
	"sort"

	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

// AddRange appends r and re-sorts by start day. Overlapping or duplicate
// ranges are kept as they are; see MergeRanges.
func AddRange(ranges []calendar.Range, r calendar.Range) []calendar.Range {
	out := make([]calendar.Range, 0, len(ranges)+1)
	out = append(out, ranges...)
	out = append(out, r)
	SortRanges(out)
	return out
}

// SortRanges sorts in place, ascending by start day. Equal starts keep their order.
func SortRanges(ranges []calendar.Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return calendar.Less(ranges[i].From, ranges[j].From)
	})
}

// DeleteRange removes the range at index of the sorted list.
func DeleteRange(ranges []calendar.Range, index int) ([]calendar.Range, error) {
	if index < 0 || index >= len(ranges) {
		return nil, fmt.Errorf("%w: index %d out of bounds (%d ranges)", domain.ErrInvalidRange, index, len(ranges))
	}
	out := make([]calendar.Range, 0, len(ranges)-1)
	out = append(out, ranges[:index]...)
	return append(out, ranges[index+1:]...), nil
}

// MergeRanges returns a sorted copy where overlapping and touching ranges are
// collapsed into one. Merging touching ranges lets a stay span the seam.
func MergeRanges(ranges []calendar.Range) []calendar.Range {
	if len(ranges) == 0 {
		return []calendar.Range{}
	}
	sorted := append([]calendar.Range(nil), ranges...)
	SortRanges(sorted)

	out := []calendar.Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if calendar.LessOrEqual(r.From, last.To) {
			if calendar.Less(last.To, r.To) {
				last.To = r.To
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
