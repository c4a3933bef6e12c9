package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

// Unscoped also sees quizzes removed with their course. Attempt history reads
// through it.
func (r *QuizRepository) Unscoped() *QuizRepository {
	return &QuizRepository{DB: r.DB.Unscoped().Session(&gorm.Session{})}
}

// Create inserts the quiz together with its questions and options.
func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(quiz).Error
	})
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var q model.Quiz
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return &q, nil
}

// FindWithQuestions loads the quiz with its questions and their options,
// both ordered by position.
func (r *QuizRepository) FindWithQuestions(id uint) (*model.Quiz, error) {
	var q model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		First(&q, id).Error
	if err != nil {
		return nil, notFound(err, util.ErrQuizNotFound)
	}
	return &q, nil
}

func (r *QuizRepository) CountQuestions(quizID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Question{}).Where("quiz_id = ?", quizID).Count(&n).Error
	return n, err
}

// ListPublishedByCourse returns the published quizzes a learner can take.
// A quiz without questions cannot be submitted, so it is left out.
func (r *QuizRepository) ListPublishedByCourse(courseID uint) ([]model.Quiz, error) {
	var qs []model.Quiz
	err := r.DB.Where("course_id = ? AND is_published = ?", courseID, true).
		Where("EXISTS (SELECT 1 FROM questions WHERE questions.quiz_id = quizzes.id AND questions.deleted_at IS NULL)").
		Order("id asc").
		Find(&qs).Error
	return qs, err
}

func (r *QuizRepository) SetPublished(id uint, published bool) error {
	res := r.DB.Model(&model.Quiz{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrQuizNotFound
	}
	return nil
}
