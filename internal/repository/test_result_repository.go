package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"

	"gorm.io/gorm"
)

type TestResultRepository struct {
	DB *gorm.DB
}

func NewTestResultRepository(db *gorm.DB) *TestResultRepository {
	return &TestResultRepository{DB: db}
}

func (r *TestResultRepository) WithTx(tx *gorm.DB) *TestResultRepository {
	return &TestResultRepository{DB: tx}
}

// Create stores the attempt and its answers. It must run inside the caller's
// transaction so an attempt never exists without its answers.
func (r *TestResultRepository) Create(result *model.TestResult) error {
	return r.DB.Create(result).Error
}

func (r *TestResultRepository) CountAttempts(userID, quizID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.TestResult{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&n).Error
	return n, err
}

func (r *TestResultRepository) FindByID(id uint) (*model.TestResult, error) {
	var tr model.TestResult
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&tr, id).Error
	if err != nil {
		return nil, notFound(err, util.ErrAttemptNotFound)
	}
	return &tr, nil
}

func (r *TestResultRepository) ListByUserAndQuiz(userID, quizID uint) ([]model.TestResult, error) {
	var rs []model.TestResult
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_no asc").
		Find(&rs).Error
	return rs, err
}

// BestScores returns the highest score per quiz among quizIDs. Quizzes without
// an attempt are absent from the map.
func (r *TestResultRepository) BestScores(userID uint, quizIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		QuizID    uint
		BestScore float64
	}
	err := r.DB.Model(&model.TestResult{}).
		Select("quiz_id, MAX(score) AS best_score").
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.QuizID] = row.BestScore
	}
	return out, nil
}

// PassedQuizzes returns the quizzes in which the user has at least one attempt
// reaching the quiz's current passing score. Points are compared, not the
// rounded percentage.
func (r *TestResultRepository) PassedQuizzes(userID uint, quizzes []model.Quiz) (map[uint]bool, error) {
	out := make(map[uint]bool, len(quizzes))
	if len(quizzes) == 0 {
		return out, nil
	}
	passing := make(map[uint]float64, len(quizzes))
	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		passing[q.ID] = q.PassingScore
		ids = append(ids, q.ID)
	}

	var rows []struct {
		QuizID       uint
		EarnedPoints float64
		TotalPoints  float64
	}
	err := r.DB.Model(&model.TestResult{}).
		Select("quiz_id, earned_points, total_points").
		Where("user_id = ? AND quiz_id IN ?", userID, ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if util.ReachesPercentage(row.EarnedPoints, row.TotalPoints, passing[row.QuizID]) {
			out[row.QuizID] = true
		}
	}
	return out, nil
}

func (r *TestResultRepository) BestScore(userID, quizID uint) (float64, bool, error) {
	scores, err := r.BestScores(userID, []uint{quizID})
	if err != nil {
		return 0, false, err
	}
	s, ok := scores[quizID]
	return s, ok, nil
}
