package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, notFound(err, util.ErrNotEnrolled)
	}
	return &e, nil
}

func (r *EnrollmentRepository) UpdateProgress(id uint, progress float64, completedLessons int, accessedAt time.Time) error {
	return r.DB.Model(&model.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress":          progress,
			"completed_lessons": completedLessons,
			"last_accessed_at":  accessedAt,
		}).Error
}

// MarkCompleted moves an ACTIVE enrollment to COMPLETED. It reports false when
// the row was not ACTIVE, which means another request completed it first.
func (r *EnrollmentRepository) MarkCompleted(id uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", id, model.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentCompleted,
			"progress":     100,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EnrollmentRepository) Touch(id uint, at time.Time) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", id).Update("last_accessed_at", at).Error
}
