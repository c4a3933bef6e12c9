package repository

import (
	"elearning_backend/internal/model"

	"gorm.io/gorm"
)

// CourseSnapshot is the raw material of a progress computation for one
// learner in one course.
type CourseSnapshot struct {
	TotalLessons     int
	CompletedLessons int
	Quizzes          []model.Quiz // published only
	BestScores       map[uint]float64
	Passed           map[uint]bool
}

// PassedQuizzes counts published quizzes with an attempt reaching the
// quiz's passing score.
func (s *CourseSnapshot) PassedQuizzes() int {
	n := 0
	for _, q := range s.Quizzes {
		if s.Passed[q.ID] {
			n++
		}
	}
	return n
}

func (s *CourseSnapshot) TotalItems() int {
	return s.TotalLessons + len(s.Quizzes)
}

func (s *CourseSnapshot) CompletedItems() int {
	return s.CompletedLessons + s.PassedQuizzes()
}

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Snapshot(userID, courseID uint) (*CourseSnapshot, error) {
	totalLessons, err := NewCourseRepository(r.DB).CountLessons(courseID)
	if err != nil {
		return nil, err
	}

	var completedLessons int64
	err = r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("lessons.course_id = ? AND lesson_progress.user_id = ? AND lesson_progress.status = ?",
			courseID, userID, model.LessonCompleted).
		Count(&completedLessons).Error
	if err != nil {
		return nil, err
	}

	quizzes, err := NewQuizRepository(r.DB).ListPublishedByCourse(courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	results := NewTestResultRepository(r.DB)
	best, err := results.BestScores(userID, ids)
	if err != nil {
		return nil, err
	}
	passed, err := results.PassedQuizzes(userID, quizzes)
	if err != nil {
		return nil, err
	}

	return &CourseSnapshot{
		TotalLessons:     int(totalLessons),
		CompletedLessons: int(completedLessons),
		Quizzes:          quizzes,
		BestScores:       best,
		Passed:           passed,
	}, nil
}
