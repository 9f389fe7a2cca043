package models

import (
	"time"
)

// QuestionKind enumerates the supported question formats
type QuestionKind string

const (
	KindFreeText         QuestionKind = "free_text"
	KindRegionAnnotation QuestionKind = "region_annotation"
	KindChoice           QuestionKind = "choice"
)

// SubmissionStatus enumerates submission states
type SubmissionStatus string

const (
	StatusInProgress SubmissionStatus = "in_progress"
	StatusEvaluating SubmissionStatus = "evaluating"
	StatusCompleted  SubmissionStatus = "completed"
)

// Step tracks grading progress in Redis for polling clients
type Step string

const (
	StepIdle      Step = "idle"
	StepQueued    Step = "queued"
	StepStarted   Step = "started"
	StepGrading   Step = "grading"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// Region is one hand-drawn or reference annotation shape.
// Shape is one of polygon, box, ellipse, points; only the fields
// relevant to the shape are populated.
type Region struct {
	Shape  string    `bson:"shape" json:"shape"`
	Points [][2]float64 `bson:"points,omitempty" json:"points,omitempty"` // polygon / points vertices
	X      float64   `bson:"x,omitempty" json:"x,omitempty"`              // box origin
	Y      float64   `bson:"y,omitempty" json:"y,omitempty"`
	Width  float64   `bson:"width,omitempty" json:"width,omitempty"`
	Height float64   `bson:"height,omitempty" json:"height,omitempty"`
	CX     float64   `bson:"cx,omitempty" json:"cx,omitempty"` // ellipse center
	CY     float64   `bson:"cy,omitempty" json:"cy,omitempty"`
	RX     float64   `bson:"rx,omitempty" json:"rx,omitempty"` // ellipse radii
	RY     float64   `bson:"ry,omitempty" json:"ry,omitempty"`
}

// Question is the immutable per-submission definition of one exam question
type Question struct {
	ID                    string             `bson:"_id" json:"id"`
	AuthorID              string             `bson:"authorId" json:"authorId"`
	Kind                  QuestionKind       `bson:"kind" json:"kind"`
	Text                  string             `bson:"text" json:"text"`
	Difficulty            int                `bson:"difficulty" json:"difficulty"` // 1..5
	ReferenceText         string             `bson:"referenceText,omitempty" json:"referenceText,omitempty"`
	ReferenceRegions      []Region           `bson:"referenceRegions,omitempty" json:"referenceRegions,omitempty"`
	ReferenceChoice       string             `bson:"referenceChoice,omitempty" json:"referenceChoice,omitempty"`
	ImageRegions          []Region           `bson:"imageRegions,omitempty" json:"imageRegions,omitempty"` // reference set attached to the question image
	ScoringCriteria       map[string]float64 `bson:"scoringCriteria,omitempty" json:"scoringCriteria,omitempty"`
	AllowPartial          bool               `bson:"allowPartial" json:"allowPartial"`
	AICheckEnabled        bool               `bson:"aiCheckEnabled" json:"aiCheckEnabled"`
	PlagiarismCheckEnabled bool              `bson:"plagiarismCheckEnabled" json:"plagiarismCheckEnabled"`
	EventLogCheckEnabled  bool               `bson:"eventLogCheckEnabled" json:"eventLogCheckEnabled"`
}

// Answer is one student response to one question within one submission
type Answer struct {
	ID             string                 `bson:"_id" json:"id"`
	SubmissionID   string                 `bson:"submissionId" json:"submissionId"`
	QuestionID     string                 `bson:"questionId" json:"questionId"`
	StudentText    string                 `bson:"studentText,omitempty" json:"studentText,omitempty"`
	StudentRegions []Region               `bson:"studentRegions,omitempty" json:"studentRegions,omitempty"`
	Evaluation     map[string]interface{} `bson:"evaluation,omitempty" json:"evaluation,omitempty"`
	Score          float64                `bson:"score" json:"score"`
	GradedAt       *time.Time             `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`
}

// SubmissionResult is the weighted aggregate written once grading completes
type SubmissionResult struct {
	TotalScore float64             `bson:"totalScore" json:"totalScore"`
	Percentage float64             `bson:"percentage" json:"percentage"`
	Grade      string              `bson:"grade" json:"grade"`
	Breakdown  []AnswerBreakdown   `bson:"breakdown" json:"breakdown"`
}

// AnswerBreakdown is one row of the weighted result breakdown
type AnswerBreakdown struct {
	QuestionID string  `bson:"questionId" json:"questionId"`
	Score      float64 `bson:"score" json:"score"`
	Difficulty int     `bson:"difficulty" json:"difficulty"`
	Weight     float64 `bson:"weight" json:"weight"`
}

// Submission is one exam attempt
type Submission struct {
	ID        string            `bson:"_id" json:"id"`
	ExamID    string            `bson:"examId" json:"examId"`
	StudentID string            `bson:"studentId" json:"studentId"`
	Status    SubmissionStatus  `bson:"status" json:"status"`
	AnswerIDs []string          `bson:"answerIds" json:"answerIds"`
	Result    *SubmissionResult `bson:"result,omitempty" json:"result,omitempty"`
	StartedAt time.Time         `bson:"startedAt" json:"startedAt"`
	GradedAt  *time.Time        `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`
}

// GradeRequest is the payload accepted by the evaluate endpoint
type GradeRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
	Force        bool   `json:"force"`
}

// GradeResponse is returned by the evaluate endpoint
type GradeResponse struct {
	Step         Step   `json:"step"`
	SubmissionID string `json:"submissionId"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
