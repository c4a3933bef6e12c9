package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

const (
	TopicQuizSubmitted         = "quiz.submitted"
	TopicCourseCompleted       = "course.completed"
	TopicCertificateIssued     = "certificate.issued"
	TopicCertificateScoreRaise = "certificate.score_updated"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and published after commit by the dispatcher.
type OutboxEvent struct {
	UUIDBase
	Topic     string         `gorm:"size:100;index;not null" json:"topic"`
	Payload   datatypes.JSON `json:"payload"`
	Status    string         `gorm:"size:20;index;default:'pending'" json:"status"`
	Attempts  int            `gorm:"default:0" json:"attempts"`
	LastError string         `gorm:"type:text" json:"lastError,omitempty"`
	SentAt    *time.Time     `json:"sentAt,omitempty"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
