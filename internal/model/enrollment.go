package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID           uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID         uint             `gorm:"uniqueIndex:idx_enrollment_user_course;index;not null" json:"courseId"`
	Progress         float64          `gorm:"default:0" json:"progress"` // 0-100
	CompletedLessons int              `gorm:"default:0" json:"completedLessons"`
	Status           EnrollmentStatus `gorm:"size:20;default:'ACTIVE'" json:"status"`
	EnrolledAt       time.Time        `json:"enrolledAt"`
	ExpiresAt        *time.Time       `json:"expiresAt,omitempty"`
	LastAccessedAt   *time.Time       `json:"lastAccessedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type LessonStatus string

const (
	LessonNotStarted LessonStatus = "NOT_STARTED"
	LessonInProgress LessonStatus = "IN_PROGRESS"
	LessonCompleted  LessonStatus = "COMPLETED"
)

// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID      uint         `gorm:"uniqueIndex:idx_lesson_progress_user_lesson;index:idx_lesson_progress_user_course;not null" json:"userId"`
	LessonID    uint         `gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null" json:"lessonId"`
	CourseID    uint         `gorm:"index:idx_lesson_progress_user_course;not null" json:"courseId"`
	Status      LessonStatus `gorm:"size:20;default:'NOT_STARTED'" json:"status"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
