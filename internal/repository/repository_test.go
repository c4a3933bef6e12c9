package repository

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/testutil"
	"elearning_backend/internal/util"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func seedCourse(t *testing.T, db *gorm.DB) (*model.Course, *model.Section, *model.Lesson, *model.Quiz) {
	t.Helper()
	course := &model.Course{Title: "Go basics", CreatorID: 1}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	section := &model.Section{CourseID: course.ID, Title: "Intro"}
	if err := db.Create(section).Error; err != nil {
		t.Fatalf("create section: %v", err)
	}
	lesson := &model.Lesson{SectionID: section.ID, CourseID: course.ID, Title: "Hello"}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	quiz := &model.Quiz{
		SectionID:    section.ID,
		CourseID:     course.ID,
		Title:        "Check",
		PassingScore: 50,
		IsPublished:  true,
		Questions: []model.Question{
			{
				Text:         "2+2",
				QuestionType: model.SingleChoice,
				Score:        1,
				Position:     2,
				Options: []model.Option{
					{Text: "4", IsCorrect: true, Position: 1},
					{Text: "5", Position: 0},
				},
			},
			{Text: "capital", QuestionType: model.FillInBlank, Score: 1, Position: 1,
				Options: []model.Option{{Text: "Hanoi", IsCorrect: true}}},
		},
	}
	if err := NewQuizRepository(db).Create(quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return course, section, lesson, quiz
}

func TestIsDuplicateKey_Enrollment(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEnrollmentRepository(db)

	if err := repo.Create(&model.Enrollment{UserID: 1, CourseID: 1, Status: model.EnrollmentActive}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := repo.Create(&model.Enrollment{UserID: 1, CourseID: 1, Status: model.EnrollmentActive})
	if !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	if IsDuplicateKey(nil) {
		t.Fatalf("nil must not be a duplicate")
	}
	if IsDuplicateKey(errors.New("connection refused")) {
		t.Fatalf("unrelated error reported as duplicate")
	}
}

func TestQuizRepository_FindWithQuestionsOrdersByPosition(t *testing.T) {
	db := testutil.NewDB(t)
	_, _, _, quiz := seedCourse(t, db)

	got, err := NewQuizRepository(db).FindWithQuestions(quiz.ID)
	if err != nil {
		t.Fatalf("FindWithQuestions: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(got.Questions))
	}
	if got.Questions[0].QuestionType != model.FillInBlank {
		t.Fatalf("first question = %s, want FILL_IN_BLANK", got.Questions[0].QuestionType)
	}
	opts := got.Questions[1].Options
	if len(opts) != 2 || opts[0].Text != "5" {
		t.Fatalf("options not ordered by position: %+v", opts)
	}

	if _, err := NewQuizRepository(db).FindWithQuestions(9999); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestTestResultRepository_BestScores(t *testing.T) {
	db := testutil.NewDB(t)
	_, _, _, quiz := seedCourse(t, db)
	repo := NewTestResultRepository(db)

	for i, score := range []float64{40, 90, 60} {
		err := repo.Create(&model.TestResult{QuizID: quiz.ID, UserID: 7, AttemptNo: i + 1, Score: score, TakenAt: time.Now()})
		if err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}

	best, err := repo.BestScores(7, []uint{quiz.ID, quiz.ID + 100})
	if err != nil {
		t.Fatalf("BestScores: %v", err)
	}
	if best[quiz.ID] != 90 {
		t.Fatalf("best = %v, want 90", best[quiz.ID])
	}
	if _, ok := best[quiz.ID+100]; ok {
		t.Fatalf("quiz without attempts must be absent")
	}

	n, err := repo.CountAttempts(7, quiz.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountAttempts = %d, %v", n, err)
	}

	dup := repo.Create(&model.TestResult{QuizID: quiz.ID, UserID: 7, AttemptNo: 2, Score: 10, TakenAt: time.Now()})
	if !IsDuplicateKey(dup) {
		t.Fatalf("expected duplicate attempt number to be rejected, got %v", dup)
	}
}

func TestLessonProgressRepository_MarkCompletedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	course, _, lesson, _ := seedCourse(t, db)
	repo := NewLessonProgressRepository(db)

	first := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := repo.MarkCompleted(3, lesson, first); err != nil {
		t.Fatalf("first MarkCompleted: %v", err)
	}
	if err := repo.MarkCompleted(3, lesson, time.Now()); err != nil {
		t.Fatalf("second MarkCompleted: %v", err)
	}

	var count int64
	db.Model(&model.LessonProgress{}).Where("user_id = ? AND lesson_id = ?", 3, lesson.ID).Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
	lp, err := repo.FindByUserAndLesson(3, lesson.ID)
	if err != nil {
		t.Fatalf("FindByUserAndLesson: %v", err)
	}
	if lp.Status != model.LessonCompleted {
		t.Fatalf("status = %q", lp.Status)
	}

	snap, err := NewProgressRepository(db).Snapshot(3, course.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalLessons != 1 || snap.CompletedLessons != 1 {
		t.Fatalf("snapshot lessons = %d/%d", snap.CompletedLessons, snap.TotalLessons)
	}
	if len(snap.Quizzes) != 1 || snap.PassedQuizzes() != 0 {
		t.Fatalf("snapshot quizzes = %d passed %d", len(snap.Quizzes), snap.PassedQuizzes())
	}
	if snap.TotalItems() != 2 || snap.CompletedItems() != 1 {
		t.Fatalf("items = %d/%d", snap.CompletedItems(), snap.TotalItems())
	}
}

func TestCourseRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	course, _, _, quiz := seedCourse(t, db)

	if err := NewCourseRepository(db).Delete(course.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	checks := []struct {
		name  string
		model interface{}
	}{
		{"sections", &model.Section{}},
		{"lessons", &model.Lesson{}},
		{"quizzes", &model.Quiz{}},
		{"questions", &model.Question{}},
		{"options", &model.Option{}},
	}
	for _, c := range checks {
		var n int64
		if err := db.Model(c.model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", c.name, err)
		}
		if n != 0 {
			t.Fatalf("%s left after delete: %d", c.name, n)
		}
	}

	if _, err := NewQuizRepository(db).FindByID(quiz.ID); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz to be gone, got %v", err)
	}
	if err := NewCourseRepository(db).Delete(course.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("second delete: expected ErrCourseNotFound, got %v", err)
	}
}

func TestCertificateRepository_RaiseScoreOnlyGoesUp(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCertificateRepository(db)
	cert := &model.Certificate{Code: "CERT-AAAA", UserID: 1, CourseID: 2, Grade: model.GradeGood, AverageScore: 85, IssuedAt: time.Now()}
	if err := repo.Create(cert); err != nil {
		t.Fatalf("Create: %v", err)
	}

	changed, err := repo.RaiseScore(cert.ID, 80, model.GradeFair, "x")
	if err != nil || changed {
		t.Fatalf("lower score: changed=%v err=%v", changed, err)
	}
	changed, err = repo.RaiseScore(cert.ID, 95, model.GradeExcellent, "y")
	if err != nil || !changed {
		t.Fatalf("higher score: changed=%v err=%v", changed, err)
	}

	got, err := repo.FindByCode("CERT-AAAA")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if got.AverageScore != 95 || got.Grade != model.GradeExcellent {
		t.Fatalf("unexpected certificate %+v", got)
	}

	dup := repo.Create(&model.Certificate{Code: "CERT-BBBB", UserID: 1, CourseID: 2, Grade: model.GradePass, IssuedAt: time.Now()})
	if !IsDuplicateKey(dup) {
		t.Fatalf("expected duplicate (user, course) to be rejected, got %v", dup)
	}
}

func TestOutboxRepository_FailureParksAfterMaxAttempts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOutboxRepository(db)
	if err := repo.Add(model.TopicQuizSubmitted, map[string]uint{"quizId": 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	pending, err := repo.ListPending(10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPending = %d, %v", len(pending), err)
	}
	ev := pending[0]

	if err := repo.MarkAttemptFailed(&ev, errors.New("boom"), 2); err != nil {
		t.Fatalf("MarkAttemptFailed: %v", err)
	}
	pending, _ = repo.ListPending(10)
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("after first failure: %+v", pending)
	}

	ev = pending[0]
	if err := repo.MarkAttemptFailed(&ev, errors.New("boom"), 2); err != nil {
		t.Fatalf("MarkAttemptFailed: %v", err)
	}
	pending, _ = repo.ListPending(10)
	if len(pending) != 0 {
		t.Fatalf("event should be parked as failed, still pending: %+v", pending)
	}
}
