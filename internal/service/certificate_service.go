package service

import (
	"context"
	"crypto/subtle"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/tracing"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// maxCodeAttempts bounds retries when a freshly generated code is already taken.
const maxCodeAttempts = 5

var newCertificateCode = func() string {
	hexID := strings.ReplaceAll(uuid.NewString(), "-", "")
	return util.CertificateCodePrefix + strings.ToUpper(hexID[:20])
}

// CertificateView is the public, verifiable rendering of a certificate.
type CertificateView struct {
	Code         string          `json:"code"`
	Grade        model.GradeBand `json:"grade"`
	AverageScore float64         `json:"averageScore"`
	DisplayName  string          `json:"displayName"`
	CourseID     uint            `json:"courseId"`
	CourseName   string          `json:"courseName"`
	UserName     string          `json:"userName"`
	IssueDate    time.Time       `json:"issueDate"`
	Verified     bool            `json:"verified"`
}

type CertificateEvent struct {
	CertificateID uint            `json:"certificateId"`
	Code          string          `json:"code"`
	UserID        uint            `json:"userId"`
	CourseID      uint            `json:"courseId"`
	Grade         model.GradeBand `json:"grade"`
	AverageScore  float64         `json:"averageScore"`
}

type CertificateService struct {
	DB             *gorm.DB
	CertRepo       *repository.CertificateRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
	CourseRepo     *repository.CourseRepository
	OutboxRepo     *repository.OutboxRepository
	Cache          CertificateCache

	signingKey []byte
	mu         sync.RWMutex
	bands      config.GradeBands
	group      singleflight.Group
}

func NewCertificateService(
	db *gorm.DB,
	certRepo *repository.CertificateRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	outboxRepo *repository.OutboxRepository,
	cfg *config.CertificateConfig,
	cache CertificateCache,
) *CertificateService {
	key := []byte(cfg.SigningKey)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &CertificateService{
		DB:             db,
		CertRepo:       certRepo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
		CourseRepo:     courseRepo,
		OutboxRepo:     outboxRepo,
		Cache:          cache,
		signingKey:     key,
		bands:          cfg.Bands,
	}
}

// SetBands swaps the grade thresholds used for new grades. Existing
// certificates keep their band until their score is raised.
func (s *CertificateService) SetBands(b config.GradeBands) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.bands = b
	s.mu.Unlock()
	logger.Log.Info("Certificate grade bands updated",
		zap.Float64("excellent", b.Excellent),
		zap.Float64("good", b.Good),
		zap.Float64("fair", b.Fair),
	)
	return nil
}

func (s *CertificateService) Bands() config.GradeBands {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bands
}

// GradeFor maps an average score onto exactly one band.
func (s *CertificateService) GradeFor(avg float64) model.GradeBand {
	b := s.Bands()
	switch {
	case avg >= b.Excellent:
		return model.GradeExcellent
	case avg >= b.Good:
		return model.GradeGood
	case avg >= b.Fair:
		return model.GradeFair
	default:
		return model.GradePass
	}
}

// averageBestScore is the mean best score over published quizzes that have at
// least one attempt. Without any such quiz the learner is credited 100.
func averageBestScore(snap *repository.CourseSnapshot) float64 {
	var scores []float64
	for _, q := range snap.Quizzes {
		if best, ok := snap.BestScores[q.ID]; ok {
			scores = append(scores, best)
		}
	}
	if len(scores) == 0 {
		return 100
	}
	return util.Mean(scores)
}

func gradeLabel(g model.GradeBand) string {
	switch g {
	case model.GradeExcellent:
		return "Excellent"
	case model.GradeGood:
		return "Good"
	case model.GradeFair:
		return "Fair"
	default:
		return "Pass"
	}
}

func displayName(course *model.Course, grade model.GradeBand) string {
	return fmt.Sprintf("%s - %s", course.Title, gradeLabel(grade))
}

func (s *CertificateService) digest(c *model.Certificate) string {
	h, err := blake2b.New256(s.signingKey)
	if err != nil {
		// only reachable with a key longer than 64 bytes, which the constructor shortens
		panic(err)
	}
	fmt.Fprintf(h, "%s|%d|%d|%s", c.Code, c.UserID, c.CourseID, c.IssuedAt.UTC().Format(util.DateFormat))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the stored digest matches the certificate fields.
func (s *CertificateService) Verify(c *model.Certificate) bool {
	want := s.digest(c)
	return subtle.ConstantTimeCompare([]byte(want), []byte(c.Digest)) == 1
}

// IssueIfEligible returns the learner's certificate for the course, creating
// it when the course is complete. Calling it again returns the same
// certificate.
func (s *CertificateService) IssueIfEligible(ctx context.Context, userID, courseID uint) (cert *model.Certificate, err error) {
	ctx, span := tracing.StartSpan(ctx, "CertificateService.IssueIfEligible", userID, courseID)
	defer func() { tracing.End(span, err) }()

	key := fmt.Sprintf("%d:%d", userID, courseID)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// shared by every collapsed caller, so one caller's cancellation must not fail the others
		ctx := context.WithoutCancel(ctx)
		var issued *model.Certificate
		var created bool
		txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			enr, err := s.EnrollmentRepo.WithTx(tx).FindByUserAndCourse(userID, courseID)
			if err != nil {
				return err
			}
			if enr.Status == model.EnrollmentCancelled {
				return util.ErrEnrollmentCancelled
			}
			issued, created, err = s.issueInTx(ctx, tx, userID, courseID)
			return err
		})
		if txErr != nil {
			return nil, txErr
		}
		if created {
			monitoring.CertificatesIssued.Inc()
		}
		return issued, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Certificate), nil
}

// issueInTx does the work of IssueIfEligible inside tx. created is false when
// an existing certificate was returned.
func (s *CertificateService) issueInTx(ctx context.Context, tx *gorm.DB, userID, courseID uint) (*model.Certificate, bool, error) {
	certs := s.CertRepo.WithTx(tx)

	existing, err := certs.FindByUserAndCourse(userID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, false, err
	}

	snap, err := s.ProgressRepo.WithTx(tx).Snapshot(userID, courseID)
	if err != nil {
		return nil, false, err
	}
	if !courseCompleted(snap) {
		return nil, false, util.ErrCourseNotCompleted
	}

	course, err := s.CourseRepo.WithTx(tx).FindByID(courseID)
	if err != nil {
		return nil, false, err
	}
	avg := averageBestScore(snap)
	grade := s.GradeFor(avg)
	name := displayName(course, grade)

	issuedAt := time.Now().Truncate(time.Second)
	for i := 0; i < maxCodeAttempts; i++ {
		cert := &model.Certificate{
			Code:         newCertificateCode(),
			UserID:       userID,
			CourseID:     courseID,
			Grade:        grade,
			AverageScore: avg,
			DisplayName:  name,
			IssuedAt:     issuedAt,
		}
		cert.Digest = s.digest(cert)

		// savepoint, so a unique violation does not poison the outer transaction
		err := tx.Transaction(func(sp *gorm.DB) error {
			return s.CertRepo.WithTx(sp).Create(cert)
		})
		if err == nil {
			if err := s.OutboxRepo.WithTx(tx).Add(model.TopicCertificateIssued, certificateEvent(cert)); err != nil {
				return nil, false, err
			}
			logger.Log.Info("Certificate issued",
				zap.Uint("userID", userID),
				zap.Uint("courseID", courseID),
				zap.String("code", cert.Code),
				zap.String("grade", string(grade)),
				zap.Float64("averageScore", avg),
			)
			return cert, true, nil
		}
		if !repository.IsDuplicateKey(err) {
			return nil, false, err
		}

		// Either a concurrent request issued it first, or the code is taken.
		winner, ferr := certs.FindByUserAndCourseLatest(userID, courseID)
		if ferr == nil {
			return winner, false, nil
		}
		if !errors.Is(ferr, util.ErrNotFound) {
			return nil, false, ferr
		}
		logger.Log.Warn("Certificate code collision, retrying", zap.String("code", cert.Code))
	}
	return nil, false, util.ErrCertificateCollision
}

// RefreshScoreIfHigher raises the stored average when the learner's current
// average is strictly higher. It never creates a certificate and never lowers
// a score.
func (s *CertificateService) RefreshScoreIfHigher(ctx context.Context, userID, courseID uint) (cert *model.Certificate, raised bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "CertificateService.RefreshScoreIfHigher", userID, courseID)
	defer func() { tracing.End(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cert, raised, err = s.refreshInTx(ctx, tx, userID, courseID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if raised {
		s.afterRefresh(ctx, cert)
	}
	return cert, raised, nil
}

func (s *CertificateService) refreshInTx(ctx context.Context, tx *gorm.DB, userID, courseID uint) (*model.Certificate, bool, error) {
	certs := s.CertRepo.WithTx(tx)
	cert, err := certs.FindByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, false, err
	}

	// a deleted course has no quizzes left to average, so the score stays
	course, err := s.CourseRepo.WithTx(tx).FindByID(courseID)
	if errors.Is(err, util.ErrCourseNotFound) {
		return cert, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	snap, err := s.ProgressRepo.WithTx(tx).Snapshot(userID, courseID)
	if err != nil {
		return nil, false, err
	}
	avg := averageBestScore(snap)
	if avg <= cert.AverageScore {
		return cert, false, nil
	}

	grade := s.GradeFor(avg)
	name := displayName(course, grade)
	changed, err := certs.RaiseScore(cert.ID, avg, grade, name)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		// a concurrent refresh stored an equal or higher score
		latest, err := certs.FindByUserAndCourse(userID, courseID)
		return latest, false, err
	}

	previous := cert.AverageScore
	cert.AverageScore = avg
	cert.Grade = grade
	cert.DisplayName = name
	if err := s.OutboxRepo.WithTx(tx).Add(model.TopicCertificateScoreRaise, certificateEvent(cert)); err != nil {
		return nil, false, err
	}
	logger.Log.Info("Certificate score raised",
		zap.Uint("userID", userID),
		zap.Uint("courseID", courseID),
		zap.Float64("from", previous),
		zap.Float64("to", avg),
	)
	return cert, true, nil
}

// afterRefresh runs once the raised score is committed.
func (s *CertificateService) afterRefresh(ctx context.Context, cert *model.Certificate) {
	monitoring.CertificatesRefreshed.Inc()
	if s.Cache != nil {
		s.Cache.Delete(ctx, cert.Code)
	}
}

func certificateEvent(c *model.Certificate) CertificateEvent {
	return CertificateEvent{
		CertificateID: c.ID,
		Code:          c.Code,
		UserID:        c.UserID,
		CourseID:      c.CourseID,
		Grade:         c.Grade,
		AverageScore:  c.AverageScore,
	}
}

// GetByCode returns the public verification view of a certificate.
func (s *CertificateService) GetByCode(ctx context.Context, code string) (*CertificateView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, util.ErrCertificateNotFound
	}
	if s.Cache != nil {
		if view, ok := s.Cache.Get(ctx, code); ok {
			return view, nil
		}
	}

	db := s.DB.WithContext(ctx)
	cert, err := s.CertRepo.WithTx(db).FindByCode(code)
	if err != nil {
		return nil, err
	}

	user, err := s.UserRepo.WithTx(db).FindByID(cert.UserID)
	if err != nil && !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	courses, err := s.CourseRepo.WithTx(db).Unscoped().FindByIDs([]uint{cert.CourseID})
	if err != nil {
		return nil, err
	}

	view := s.view(cert, user, courses)
	if s.Cache != nil {
		s.Cache.Set(ctx, view)
	}
	return view, nil
}

func (s *CertificateService) ListForUser(ctx context.Context, userID uint) ([]CertificateView, error) {
	db := s.DB.WithContext(ctx)
	certs, err := s.CertRepo.WithTx(db).ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return []CertificateView{}, nil
	}

	user, err := s.UserRepo.WithTx(db).FindByID(userID)
	if err != nil && !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	ids := make([]uint, 0, len(certs))
	for _, c := range certs {
		ids = append(ids, c.CourseID)
	}
	courses, err := s.CourseRepo.WithTx(db).Unscoped().FindByIDs(ids)
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, 0, len(certs))
	for i := range certs {
		views = append(views, *s.view(&certs[i], user, courses))
	}
	return views, nil
}

func (s *CertificateService) view(c *model.Certificate, user *model.User, courses map[uint]model.Course) *CertificateView {
	v := &CertificateView{
		Code:         c.Code,
		Grade:        c.Grade,
		AverageScore: c.AverageScore,
		DisplayName:  c.DisplayName,
		CourseID:     c.CourseID,
		IssueDate:    c.IssuedAt,
		Verified:     s.Verify(c),
	}
	if user != nil {
		v.UserName = user.Name
	}
	if course, ok := courses[c.CourseID]; ok {
		v.CourseName = course.Title
	}
	return v
}
