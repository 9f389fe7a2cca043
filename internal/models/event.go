package models

import "time"

// EventType enumerates behavioral telemetry events captured during an attempt
type EventType string

const (
	EventTabHidden      EventType = "tab_hidden"
	EventTabVisible     EventType = "tab_visible"
	EventWindowBlur     EventType = "window_blur"
	EventWindowFocus    EventType = "window_focus"
	EventPasteAttempted EventType = "paste_attempted"
)

// Event is one timestamped behavioral record, owned by the telemetry
// collaborator and read-only to the grading core.
type Event struct {
	ID           string    `bson:"_id" json:"id"`
	SubmissionID string    `bson:"submissionId" json:"submissionId"`
	QuestionID   string    `bson:"questionId,omitempty" json:"questionId,omitempty"`
	Type         EventType `bson:"type" json:"type"`
	Payload      string    `bson:"payload,omitempty" json:"payload,omitempty"`
	At           time.Time `bson:"at" json:"at"`
}
