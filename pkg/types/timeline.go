package types

import (
	"time"

	"github.com/kiranlabs/storefront-backend/pkg/enums"
)

// TimelineEvent is one append-only progress entry shown to the customer.
type TimelineEvent struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      enums.TimelineStatus `json:"status"`
	At          time.Time            `json:"at"`
}

// Timeline is the ordered event list kept on an order. At most one event
// is `current`; appending demotes the previous current entry to complete.
type Timeline []TimelineEvent

// Append adds an event, demoting the previous current entry. Terminal
// events are appended as complete so the timeline ends without a cursor.
func (t Timeline) Append(event TimelineEvent, terminal bool) Timeline {
	out := make(Timeline, 0, len(t)+1)
	for _, existing := range t {
		if existing.Status == enums.TimelineStatusCurrent {
			existing.Status = enums.TimelineStatusComplete
		}
		out = append(out, existing)
	}
	if terminal {
		event.Status = enums.TimelineStatusComplete
	} else {
		event.Status = enums.TimelineStatusCurrent
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	return append(out, event)
}

// Current returns the in-progress event, or nil when none is current.
func (t Timeline) Current() *TimelineEvent {
	for i := range t {
		if t[i].Status == enums.TimelineStatusCurrent {
			return &t[i]
		}
	}
	return nil
}
