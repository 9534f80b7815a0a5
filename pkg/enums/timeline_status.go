package enums

import "fmt"

// TimelineStatus marks an order timeline event as past, present, or future.
type TimelineStatus string

const (
	TimelineStatusComplete TimelineStatus = "complete"
	TimelineStatusCurrent  TimelineStatus = "current"
	TimelineStatusUpcoming TimelineStatus = "upcoming"
)

var validTimelineStatuses = []TimelineStatus{
	TimelineStatusComplete,
	TimelineStatusCurrent,
	TimelineStatusUpcoming,
}

// String implements fmt.Stringer.
func (s TimelineStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TimelineStatus.
func (s TimelineStatus) IsValid() bool {
	for _, candidate := range validTimelineStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTimelineStatus converts raw input into a TimelineStatus.
func ParseTimelineStatus(value string) (TimelineStatus, error) {
	for _, candidate := range validTimelineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline status %q", value)
}
