package model

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	FillInBlank    QuestionType = "FILL_IN_BLANK"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, FillInBlank:
		return true
	}
	return false
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	SectionID    uint       `gorm:"index;not null" json:"sectionId"`
	CourseID     uint       `gorm:"index;not null" json:"courseId"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	TimeLimit    int        `gorm:"default:0" json:"timeLimit"`   // seconds, 0 = none
	PassingScore float64    `gorm:"not null" json:"passingScore"` // 0-100
	MaxAttempts  int        `gorm:"default:0" json:"maxAttempts"` // 0 = unlimited
	IsPublished  bool       `gorm:"default:false;index" json:"isPublished"`
	Questions    []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID       uint         `gorm:"index;not null" json:"quizId"`
	Text         string       `gorm:"type:text;not null" json:"text"`
	QuestionType QuestionType `gorm:"size:30;not null" json:"questionType"`
	Score        float64      `gorm:"not null" json:"score"`
	// CorrectBoolean is the canonical answer of a TRUE_FALSE question. When nil
	// it is derived from the option flagged correct.
	CorrectBoolean *bool    `json:"correctBoolean,omitempty"`
	Explanation    string   `gorm:"type:text" json:"explanation"`
	Position       int      `gorm:"default:0" json:"position"`
	Options        []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model Option
type Option struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Position   int    `gorm:"default:0" json:"position"`
}

func (Option) TableName() string {
	return "options"
}
