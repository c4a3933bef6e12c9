package repository

import (
	"elearning_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonProgressRepository struct {
	DB *gorm.DB
}

func NewLessonProgressRepository(db *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: db}
}

func (r *LessonProgressRepository) WithTx(tx *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: tx}
}

// MarkCompleted upserts the (user, lesson) row to COMPLETED. Repeating it keeps
// the first completion time.
func (r *LessonProgressRepository) MarkCompleted(userID uint, lesson *model.Lesson, at time.Time) error {
	lp := model.LessonProgress{
		UserID:      userID,
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		Status:      model.LessonCompleted,
		CompletedAt: &at,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":       model.LessonCompleted,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
			"updated_at":   at,
		}),
	}).Create(&lp).Error
}

func (r *LessonProgressRepository) FindByUserAndLesson(userID, lessonID uint) (*model.LessonProgress, error) {
	var lp model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}
