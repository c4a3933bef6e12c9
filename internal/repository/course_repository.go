package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

// Unscoped also sees deleted courses, for rendering certificates issued
// before the deletion.
func (r *CourseRepository) Unscoped() *CourseRepository {
	return &CourseRepository{DB: r.DB.Unscoped().Session(&gorm.Session{})}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var c model.Course
	if err := r.DB.First(&c, id).Error; err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return &c, nil
}

func (r *CourseRepository) FindByIDs(ids []uint) (map[uint]model.Course, error) {
	out := make(map[uint]model.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var courses []model.Course
	if err := r.DB.Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, err
	}
	for _, c := range courses {
		out[c.ID] = c
	}
	return out, nil
}

func (r *CourseRepository) CreateSection(section *model.Section) error {
	return r.DB.Create(section).Error
}

func (r *CourseRepository) FindSectionByID(id uint) (*model.Section, error) {
	var s model.Section
	if err := r.DB.First(&s, id).Error; err != nil {
		return nil, notFound(err, util.ErrSectionNotFound)
	}
	return &s, nil
}

func (r *CourseRepository) CreateLesson(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *CourseRepository) FindLessonByID(id uint) (*model.Lesson, error) {
	var l model.Lesson
	if err := r.DB.First(&l, id).Error; err != nil {
		return nil, notFound(err, util.ErrLessonNotFound)
	}
	return &l, nil
}

func (r *CourseRepository) CountLessons(courseID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

// Delete removes a course and everything it owns: sections, lessons, quizzes,
// their questions and options, in a single transaction. Learner records
// (attempts, progress, certificates) are kept.
func (r *CourseRepository) Delete(courseID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Select("id").First(&course, courseID).Error; err != nil {
			return notFound(err, util.ErrCourseNotFound)
		}

		quizIDs := tx.Model(&model.Quiz{}).Select("id").Where("course_id = ?", courseID)
		questionIDs := tx.Model(&model.Question{}).Select("id").Where("quiz_id IN (?)", quizIDs)

		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&model.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&model.Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, courseID).Error
	})
}
