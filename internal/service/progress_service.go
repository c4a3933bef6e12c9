package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/tracing"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressResult struct {
	CourseID           uint                   `json:"courseId"`
	ProgressPercentage float64                `json:"progressPercentage"`
	CompletedLessons   int                    `json:"completedLessons"`
	TotalLessons       int                    `json:"totalLessons"`
	PassedQuizzes      int                    `json:"passedQuizzes"`
	TotalQuizzes       int                    `json:"totalQuizzes"`
	IsCompleted        bool                   `json:"isCompleted"`
	Status             model.EnrollmentStatus `json:"status"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty"`
	Certificate        *model.Certificate     `json:"certificate,omitempty"`
}

type CourseCompletedEvent struct {
	UserID      uint      `json:"userId"`
	CourseID    uint      `json:"courseId"`
	CompletedAt time.Time `json:"completedAt"`
}

// courseCompleted is the completion predicate: every lesson completed and every
// published quiz passed. An empty course never completes.
func courseCompleted(snap *repository.CourseSnapshot) bool {
	if snap.TotalItems() == 0 {
		return false
	}
	return snap.CompletedLessons == snap.TotalLessons && snap.PassedQuizzes() == len(snap.Quizzes)
}

type ProgressService struct {
	DB                 *gorm.DB
	CourseRepo         *repository.CourseRepository
	EnrollmentRepo     *repository.EnrollmentRepository
	LessonProgressRepo *repository.LessonProgressRepository
	ProgressRepo       *repository.ProgressRepository
	OutboxRepo         *repository.OutboxRepository
	Certificates       *CertificateService
}

func NewProgressService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	lessonProgressRepo *repository.LessonProgressRepository,
	progressRepo *repository.ProgressRepository,
	outboxRepo *repository.OutboxRepository,
	certificates *CertificateService,
) *ProgressService {
	return &ProgressService{
		DB:                 db,
		CourseRepo:         courseRepo,
		EnrollmentRepo:     enrollmentRepo,
		LessonProgressRepo: lessonProgressRepo,
		ProgressRepo:       progressRepo,
		OutboxRepo:         outboxRepo,
		Certificates:       certificates,
	}
}

// Enroll creates an ACTIVE enrollment, or returns the existing one. A
// cancelled enrollment is reactivated.
func (s *ProgressService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.CourseRepo.WithTx(db).FindByID(courseID); err != nil {
		return nil, err
	}

	enrollments := s.EnrollmentRepo.WithTx(db)
	existing, err := enrollments.FindByUserAndCourse(userID, courseID)
	if err == nil {
		if existing.Status != model.EnrollmentCancelled {
			return existing, nil
		}
		existing.Status = model.EnrollmentActive
		if err := db.Model(existing).Update("status", model.EnrollmentActive).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	enr := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := enrollments.Create(enr); err != nil {
		if repository.IsDuplicateKey(err) {
			return enrollments.FindByUserAndCourse(userID, courseID)
		}
		return nil, err
	}
	logger.Log.Info("User enrolled", zap.Uint("userID", userID), zap.Uint("courseID", courseID))
	return enr, nil
}

// CompleteLesson marks a lesson completed for the learner and recomputes the
// course progress. Repeating it is harmless.
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, lessonID uint) (*ProgressResult, error) {
	var courseID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson, err := s.CourseRepo.WithTx(tx).FindLessonByID(lessonID)
		if err != nil {
			return err
		}
		courseID = lesson.CourseID

		enr, err := s.EnrollmentRepo.WithTx(tx).FindByUserAndCourse(userID, lesson.CourseID)
		if err != nil {
			return err
		}
		if enr.Status == model.EnrollmentCancelled {
			return util.ErrEnrollmentCancelled
		}
		return s.LessonProgressRepo.WithTx(tx).MarkCompleted(userID, lesson, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return s.Recompute(ctx, userID, courseID)
}

// IsCourseCompleted evaluates the completion predicate. tx may be nil.
func (s *ProgressService) IsCourseCompleted(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error) {
	if tx == nil {
		tx = s.DB.WithContext(ctx)
	}
	snap, err := s.ProgressRepo.WithTx(tx).Snapshot(userID, courseID)
	if err != nil {
		return false, err
	}
	return courseCompleted(snap), nil
}

// Recompute refreshes the enrollment's progress from lesson progress and best
// quiz scores. The first time the course is complete the enrollment becomes
// COMPLETED and the certificate is issued in the same transaction. Once
// COMPLETED, only the certificate score may still go up.
func (s *ProgressService) Recompute(ctx context.Context, userID, courseID uint) (result *ProgressResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.Recompute", userID, courseID)
	defer func() { tracing.End(span, err) }()

	var (
		outcome   string
		issued    bool
		refreshed bool
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := s.EnrollmentRepo.WithTx(tx)
		enr, err := enrollments.FindByUserAndCourse(userID, courseID)
		if err != nil {
			return err
		}
		now := time.Now()

		switch enr.Status {
		case model.EnrollmentCancelled:
			return util.ErrEnrollmentCancelled
		case model.EnrollmentCompleted:
			outcome = "frozen"
			result, refreshed, err = s.frozen(ctx, tx, enr, now)
			return err
		}

		snap, err := s.ProgressRepo.WithTx(tx).Snapshot(userID, courseID)
		if err != nil {
			return err
		}
		result = &ProgressResult{
			CourseID:           courseID,
			ProgressPercentage: util.Percentage(float64(snap.CompletedItems()), float64(snap.TotalItems())),
			CompletedLessons:   snap.CompletedLessons,
			TotalLessons:       snap.TotalLessons,
			PassedQuizzes:      snap.PassedQuizzes(),
			TotalQuizzes:       len(snap.Quizzes),
			IsCompleted:        courseCompleted(snap),
			Status:             enr.Status,
		}
		if err := enrollments.UpdateProgress(enr.ID, result.ProgressPercentage, snap.CompletedLessons, now); err != nil {
			return err
		}
		if !result.IsCompleted {
			outcome = "in_progress"
			return nil
		}

		outcome = "completed"
		transitioned, err := enrollments.MarkCompleted(enr.ID, now)
		if err != nil {
			return err
		}
		cert, created, err := s.Certificates.issueInTx(ctx, tx, userID, courseID)
		if err != nil {
			return err
		}
		issued = created
		result.Status = model.EnrollmentCompleted
		result.CompletedAt = &now
		result.Certificate = cert

		if transitioned {
			logger.Log.Info("Course completed", zap.Uint("userID", userID), zap.Uint("courseID", courseID))
			return s.OutboxRepo.WithTx(tx).Add(model.TopicCourseCompleted, CourseCompletedEvent{
				UserID:      userID,
				CourseID:    courseID,
				CompletedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		monitoring.ProgressRecomputations.WithLabelValues("error").Inc()
		return nil, err
	}

	monitoring.ProgressRecomputations.WithLabelValues(outcome).Inc()
	if issued {
		monitoring.CertificatesIssued.Inc()
	}
	if refreshed && result.Certificate != nil {
		s.Certificates.afterRefresh(ctx, result.Certificate)
	}
	return result, nil
}

// frozen handles an already completed enrollment: completion is not
// re-evaluated, only the certificate score refresh runs.
func (s *ProgressService) frozen(ctx context.Context, tx *gorm.DB, enr *model.Enrollment, now time.Time) (*ProgressResult, bool, error) {
	if err := s.EnrollmentRepo.WithTx(tx).Touch(enr.ID, now); err != nil {
		return nil, false, err
	}

	result := &ProgressResult{
		CourseID:           enr.CourseID,
		ProgressPercentage: enr.Progress,
		CompletedLessons:   enr.CompletedLessons,
		IsCompleted:        true,
		Status:             model.EnrollmentCompleted,
		CompletedAt:        enr.CompletedAt,
	}

	cert, refreshed, err := s.Certificates.refreshInTx(ctx, tx, enr.UserID, enr.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCertificateNotFound) {
			logger.Log.Warn("Completed enrollment has no certificate",
				zap.Uint("userID", enr.UserID),
				zap.Uint("courseID", enr.CourseID),
			)
			return result, false, nil
		}
		return nil, false, err
	}
	result.Certificate = cert
	return result, refreshed, nil
}
