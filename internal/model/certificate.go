package model

import "time"

type GradeBand string

const (
	GradeExcellent GradeBand = "EXCELLENT"
	GradeGood      GradeBand = "GOOD"
	GradeFair      GradeBand = "FAIR"
	GradePass      GradeBand = "PASS"
)

// Certificate is unique per (user, course). Its score may only move upward.
// swagger:model Certificate
type Certificate struct {
	BaseModel
	Code         string    `gorm:"size:40;uniqueIndex;not null" json:"code"`
	UserID       uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"userId"`
	CourseID     uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"courseId"`
	Grade        GradeBand `gorm:"size:20;not null" json:"grade"`
	AverageScore float64   `json:"averageScore"`
	DisplayName  string    `gorm:"size:255" json:"displayName"`
	Digest       string    `gorm:"size:64" json:"-"`
	IssuedAt     time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
