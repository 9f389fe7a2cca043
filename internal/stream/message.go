package stream

import (
	"fmt"
)

// StreamMessage is a raw message read from the grading stream
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// GradingMessage is a parsed grading trigger
type GradingMessage struct {
	SubmissionID string
	Force        bool
}

// ParseGradingMessage validates and extracts a grading trigger from a raw
// stream message.
func ParseGradingMessage(msg *StreamMessage) (*GradingMessage, error) {
	submissionID := msg.Fields["submissionId"]
	if submissionID == "" {
		return nil, fmt.Errorf("message %s is missing submissionId", msg.ID)
	}

	force := false
	switch msg.Fields["force"] {
	case "true", "1":
		force = true
	}

	return &GradingMessage{
		SubmissionID: submissionID,
		Force:        force,
	}, nil
}
