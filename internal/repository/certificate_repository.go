package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) WithTx(tx *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: tx}
}

func (r *CertificateRepository) Create(cert *model.Certificate) error {
	return r.DB.Create(cert).Error
}

func (r *CertificateRepository) FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error) {
	var c model.Certificate
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&c).Error
	if err != nil {
		return nil, notFound(err, util.ErrCertificateNotFound)
	}
	return &c, nil
}

// FindByUserAndCourseLatest is a locking read, so inside a REPEATABLE READ
// transaction it still sees a row committed by a concurrent transaction.
func (r *CertificateRepository) FindByUserAndCourseLatest(userID, courseID uint) (*model.Certificate, error) {
	var c model.Certificate
	err := r.DB.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&c).Error
	if err != nil {
		return nil, notFound(err, util.ErrCertificateNotFound)
	}
	return &c, nil
}

func (r *CertificateRepository) FindByCode(code string) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.DB.Where("code = ?", code).First(&c).Error; err != nil {
		return nil, notFound(err, util.ErrCertificateNotFound)
	}
	return &c, nil
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var cs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("issued_at desc").Find(&cs).Error
	return cs, err
}

// RaiseScore updates score, grade and display name only if score is strictly
// higher than the stored one. It reports whether a row changed.
func (r *CertificateRepository) RaiseScore(id uint, score float64, grade model.GradeBand, displayName string) (bool, error) {
	res := r.DB.Model(&model.Certificate{}).
		Where("id = ? AND average_score < ?", id, score).
		Updates(map[string]interface{}{
			"average_score": score,
			"grade":         grade,
			"display_name":  displayName,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
