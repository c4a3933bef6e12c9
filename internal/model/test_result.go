package model

import (
	"time"

	"gorm.io/datatypes"
)

// TestResult is one graded attempt. Rows are never updated after creation.
// swagger:model TestResult
type TestResult struct {
	BaseModel
	QuizID         uint         `gorm:"uniqueIndex:idx_result_user_quiz_attempt;index;not null" json:"quizId"`
	UserID         uint         `gorm:"uniqueIndex:idx_result_user_quiz_attempt;index;not null" json:"userId"`
	AttemptNo      int          `gorm:"uniqueIndex:idx_result_user_quiz_attempt;not null" json:"attemptNo"`
	Score          float64      `gorm:"not null" json:"score"` // percentage
	EarnedPoints   float64      `json:"earnedPoints"`
	TotalPoints    float64      `json:"totalPoints"`
	CorrectAnswers int          `json:"correctAnswers"`
	TotalQuestions int          `json:"totalQuestions"`
	IsPassed       bool         `gorm:"default:false" json:"isPassed"`
	TimeSpent      int          `json:"timeSpent"` // seconds, as declared by the client
	TakenAt        time.Time    `json:"takenAt"`
	Answers        []QuizAnswer `gorm:"foreignKey:TestResultID" json:"answers,omitempty"`
}

func (TestResult) TableName() string {
	return "test_results"
}

// swagger:model QuizAnswer
type QuizAnswer struct {
	BaseModel
	TestResultID   uint           `gorm:"index;not null" json:"testResultId"`
	QuestionID     uint           `gorm:"index;not null" json:"questionId"`
	SubmittedValue datatypes.JSON `json:"submittedValue"`
	IsCorrect      bool           `gorm:"default:false" json:"isCorrect"`
	EarnedScore    float64        `json:"earnedScore"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
