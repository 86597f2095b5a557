package models

import "time"

// EventType identifies a timeline entry
type EventType string

// Timeline event types
const (
	EventSubmitted      EventType = "submitted"
	EventAttested       EventType = "attested"
	EventStatusChanged  EventType = "status_changed"
	EventReported       EventType = "reported"
	EventFlagCleared    EventType = "flag_cleared"
	EventModeratorAct   EventType = "moderator_override"
	EventFieldUpdated   EventType = "field_updated"
	EventSighting       EventType = "sighting"
	EventMarkedFound    EventType = "marked_found"
	EventMarkedClosed   EventType = "marked_closed"
	EventCommentHidden  EventType = "comment_hidden"
	EventCommentVisible EventType = "comment_visible"
)

// TimelineEvent is one append-only audit entry on a case
type TimelineEvent struct {
	At    time.Time `json:"at" bson:"at"`
	Type  EventType `json:"type" bson:"type"`
	Field string    `json:"field,omitempty" bson:"field,omitempty"`
	From  string    `json:"from,omitempty" bson:"from,omitempty"`
	To    string    `json:"to,omitempty" bson:"to,omitempty"`
	Actor string    `json:"actor,omitempty" bson:"actor,omitempty"`
	Note  string    `json:"note,omitempty" bson:"note,omitempty"`
}
