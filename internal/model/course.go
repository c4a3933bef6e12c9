package model

// Course is the aggregate root for sections, lessons and quizzes. Children
// reference it by id; deleting a course is an explicit repository operation.
// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	CreatorID   uint   `gorm:"index" json:"creatorId"`
	IsPublished bool   `gorm:"default:false" json:"isPublished"`
}

func (Course) TableName() string {
	return "courses"
}

type Section struct {
	BaseModel
	CourseID uint   `gorm:"index;not null" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`
}

func (Section) TableName() string {
	return "sections"
}

type Lesson struct {
	BaseModel
	SectionID uint   `gorm:"index;not null" json:"sectionId"`
	CourseID  uint   `gorm:"index;not null" json:"courseId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
	Position  int    `gorm:"default:0" json:"position"`
}

func (Lesson) TableName() string {
	return "lessons"
}
