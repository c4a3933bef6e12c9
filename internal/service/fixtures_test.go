package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/testutil"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	outbox   *repository.OutboxRepository
	quizzes  *QuizService
	progress *ProgressService
	certs    *CertificateService
	courses  *CourseService
	teacher  Actor
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	resultRepo := repository.NewTestResultRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	lessonProgressRepo := repository.NewLessonProgressRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	userRepo := repository.NewUserRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	certCfg := &config.CertificateConfig{
		Bands:      config.GradeBands{Excellent: 90, Good: 80, Fair: 70},
		SigningKey: "test-signing-key",
	}
	certs := NewCertificateService(db, certRepo, progressRepo, enrollmentRepo, userRepo, courseRepo, outboxRepo, certCfg, nil)
	progress := NewProgressService(db, courseRepo, enrollmentRepo, lessonProgressRepo, progressRepo, outboxRepo, certs)
	quizzes := NewQuizService(db, quizRepo, resultRepo, outboxRepo, progress, &config.GradingConfig{MaxSubmitRetries: 3})
	courses := NewCourseService(db, courseRepo, quizRepo)

	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		outbox:   outboxRepo,
		quizzes:  quizzes,
		progress: progress,
		certs:    certs,
		courses:  courses,
	}
	teacher := f.user(t, model.Teacher)
	f.teacher = Actor{UserID: teacher.ID, Role: model.Teacher}
	return f
}

func (f *fixture) user(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	f.seq++
	u := &model.User{
		Name:  fmt.Sprintf("User %d", f.seq),
		Email: fmt.Sprintf("user%d@example.com", f.seq),
		Role:  role,
	}
	if err := repository.NewUserRepository(f.db).Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) student(t *testing.T) *model.User {
	return f.user(t, model.Student)
}

func (f *fixture) course(t *testing.T) (*model.Course, *model.Section) {
	t.Helper()
	course, err := f.courses.CreateCourse(f.ctx, f.teacher, CreateCourseRequest{Title: "Go for beginners", IsPublished: true})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	section, err := f.courses.AddSection(f.ctx, f.teacher, course.ID, CreateSectionRequest{Title: "Basics"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	return course, section
}

func (f *fixture) lesson(t *testing.T, section *model.Section) *model.Lesson {
	t.Helper()
	f.seq++
	l, err := f.courses.AddLesson(f.ctx, f.teacher, section.ID, CreateLessonRequest{Title: fmt.Sprintf("Lesson %d", f.seq)})
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	return l
}

// quiz creates a published quiz of n single choice questions weighted 1.
func (f *fixture) quiz(t *testing.T, section *model.Section, n int, passing float64, maxAttempts int) *model.Quiz {
	t.Helper()
	req := CreateQuizRequest{
		Title:        "Checkpoint",
		PassingScore: &passing,
		MaxAttempts:  maxAttempts,
		IsPublished:  true,
	}
	for i := 0; i < n; i++ {
		req.Questions = append(req.Questions, QuestionRequest{
			Text:         fmt.Sprintf("Question %d", i+1),
			QuestionType: model.SingleChoice,
			Explanation:  "see lesson",
			Position:     i,
			Options: []OptionRequest{
				{Text: "right", IsCorrect: true, Position: 0},
				{Text: "wrong", Position: 1},
			},
		})
	}
	q, err := f.courses.AddQuiz(f.ctx, f.teacher, section.ID, req)
	if err != nil {
		t.Fatalf("AddQuiz: %v", err)
	}
	return q
}

func (f *fixture) enroll(t *testing.T, user *model.User, course *model.Course) {
	t.Helper()
	if _, err := f.progress.Enroll(f.ctx, user.ID, course.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
}

func (f *fixture) completeLesson(t *testing.T, user *model.User, lesson *model.Lesson) *ProgressResult {
	t.Helper()
	res, err := f.progress.CompleteLesson(f.ctx, user.ID, lesson.ID)
	if err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}
	return res
}

func pickOption(q *model.Question, correct bool) *uint {
	for _, o := range q.Options {
		if o.IsCorrect == correct {
			id := o.ID
			return &id
		}
	}
	return nil
}

// answersWithCorrect answers the first k questions correctly and the rest
// wrongly.
func answersWithCorrect(quiz *model.Quiz, k int) SubmitQuizRequest {
	req := SubmitQuizRequest{TimeSpentSeconds: 30}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		req.Answers = append(req.Answers, SubmittedAnswer{
			QuestionID:       q.ID,
			SelectedOptionID: pickOption(q, i < k),
		})
	}
	return req
}

func (f *fixture) submit(t *testing.T, user *model.User, quiz *model.Quiz, correct int) *SubmitResult {
	t.Helper()
	res, err := f.quizzes.Submit(f.ctx, user.ID, quiz.ID, answersWithCorrect(quiz, correct))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return res
}

func (f *fixture) countEvents(t *testing.T, topic string) int {
	t.Helper()
	evs, err := f.outbox.ListByTopic(topic)
	if err != nil {
		t.Fatalf("ListByTopic: %v", err)
	}
	return len(evs)
}
