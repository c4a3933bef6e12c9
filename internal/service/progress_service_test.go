package service

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"errors"
	"testing"
)

func TestRecompute_PartialProgress(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lessons := []*model.Lesson{f.lesson(t, section), f.lesson(t, section), f.lesson(t, section)}
	passed := f.quiz(t, section, 2, 50, 0)
	f.quiz(t, section, 2, 50, 0)

	user := f.student(t)
	f.enroll(t, user, course)
	for _, l := range lessons {
		f.completeLesson(t, user, l)
	}
	res := f.submit(t, user, passed, 2)

	p := res.Progress
	if p == nil {
		t.Fatalf("expected progress after submit")
	}
	if p.ProgressPercentage != 80 {
		t.Fatalf("progress = %v, want 80", p.ProgressPercentage)
	}
	if p.IsCompleted || p.Status != model.EnrollmentActive || p.Certificate != nil {
		t.Fatalf("course should not be complete: %+v", p)
	}
	if p.CompletedLessons != 3 || p.TotalLessons != 3 || p.PassedQuizzes != 1 || p.TotalQuizzes != 2 {
		t.Fatalf("unexpected counts: %+v", p)
	}

	var enr model.Enrollment
	f.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enr)
	if enr.Progress != 80 || enr.CompletedLessons != 3 || enr.LastAccessedAt == nil {
		t.Fatalf("stored enrollment not updated: %+v", enr)
	}
}

func TestRecompute_FailedAttemptDoesNotCount(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	quiz := f.quiz(t, section, 2, 60, 0)

	user := f.student(t)
	f.enroll(t, user, course)
	res := f.submit(t, user, quiz, 1)

	if res.IsPassed || res.Progress.ProgressPercentage != 0 || res.Progress.IsCompleted {
		t.Fatalf("50%% below passing 60 must not count: %+v", res.Progress)
	}
}

func TestRecompute_CompletesCourseAndIssuesCertificate(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)
	quiz := f.quiz(t, section, 2, 50, 0)

	user := f.student(t)
	f.enroll(t, user, course)
	f.completeLesson(t, user, lesson)
	res := f.submit(t, user, quiz, 2)

	p := res.Progress
	if !p.IsCompleted || p.Status != model.EnrollmentCompleted || p.ProgressPercentage != 100 || p.CompletedAt == nil {
		t.Fatalf("course should be completed: %+v", p)
	}
	if p.Certificate == nil || p.Certificate.Grade != model.GradeExcellent || p.Certificate.AverageScore != 100 {
		t.Fatalf("unexpected certificate %+v", p.Certificate)
	}

	var enr model.Enrollment
	f.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&enr)
	if enr.Status != model.EnrollmentCompleted || enr.CompletedAt == nil || enr.Progress != 100 {
		t.Fatalf("stored enrollment = %+v", enr)
	}

	if n := f.countEvents(t, model.TopicCourseCompleted); n != 1 {
		t.Fatalf("course.completed events = %d", n)
	}
	if n := f.countEvents(t, model.TopicCertificateIssued); n != 1 {
		t.Fatalf("certificate.issued events = %d", n)
	}

	ok, err := f.progress.IsCourseCompleted(f.ctx, nil, user.ID, course.ID)
	if err != nil || !ok {
		t.Fatalf("IsCourseCompleted = %v, %v", ok, err)
	}
}

func TestRecompute_FrozenAfterCompletion(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)

	user := f.student(t)
	f.enroll(t, user, course)
	first := f.completeLesson(t, user, lesson)
	if !first.IsCompleted {
		t.Fatalf("expected completion: %+v", first)
	}

	// new content after completion does not reopen the course
	f.lesson(t, section)
	again, err := f.progress.Recompute(f.ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if !again.IsCompleted || again.Status != model.EnrollmentCompleted || again.ProgressPercentage != 100 {
		t.Fatalf("completed enrollment must stay frozen: %+v", again)
	}
	if again.Certificate == nil || again.Certificate.ID != first.Certificate.ID {
		t.Fatalf("certificate changed: %+v", again.Certificate)
	}
	if n := f.countEvents(t, model.TopicCourseCompleted); n != 1 {
		t.Fatalf("course.completed events = %d, want 1", n)
	}
}

func TestRecompute_EmptyCourseNeverCompletes(t *testing.T) {
	f := newFixture(t)
	course, _ := f.course(t)
	user := f.student(t)
	f.enroll(t, user, course)

	p, err := f.progress.Recompute(f.ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if p.IsCompleted || p.ProgressPercentage != 0 || p.Status != model.EnrollmentActive {
		t.Fatalf("empty course completed: %+v", p)
	}
}

func TestRecompute_QuizWithoutQuestionsIgnored(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)
	// written directly, bypassing authoring validation
	empty := &model.Quiz{SectionID: section.ID, CourseID: course.ID, Title: "empty", PassingScore: 50, IsPublished: true}
	if err := f.db.Create(empty).Error; err != nil {
		t.Fatalf("create empty quiz: %v", err)
	}
	user := f.student(t)
	f.enroll(t, user, course)

	res := f.completeLesson(t, user, lesson)
	if !res.IsCompleted || res.TotalQuizzes != 0 || res.ProgressPercentage != 100 || res.Certificate == nil {
		t.Fatalf("progress = %+v", res)
	}
}

func TestRecompute_UnpublishedQuizIgnored(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)
	draft := f.quiz(t, section, 2, 50, 0)
	if _, err := f.courses.SetQuizPublished(f.ctx, f.teacher, draft.ID, false); err != nil {
		t.Fatalf("SetQuizPublished: %v", err)
	}

	user := f.student(t)
	f.enroll(t, user, course)
	p := f.completeLesson(t, user, lesson)
	if !p.IsCompleted || p.TotalQuizzes != 0 {
		t.Fatalf("draft quiz should not block completion: %+v", p)
	}
}

func TestRecompute_EnrollmentErrors(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)
	user := f.student(t)

	if _, err := f.progress.Recompute(f.ctx, user.ID, course.ID); !errors.Is(err, util.ErrNotEnrolled) {
		t.Fatalf("not enrolled: got %v", err)
	}
	if _, err := f.progress.CompleteLesson(f.ctx, user.ID, lesson.ID); !errors.Is(err, util.ErrNotEnrolled) {
		t.Fatalf("CompleteLesson not enrolled: got %v", err)
	}

	f.enroll(t, user, course)
	f.db.Model(&model.Enrollment{}).Where("user_id = ?", user.ID).Update("status", model.EnrollmentCancelled)

	if _, err := f.progress.Recompute(f.ctx, user.ID, course.ID); !errors.Is(err, util.ErrEnrollmentCancelled) {
		t.Fatalf("cancelled: got %v", err)
	}
	if _, err := f.progress.CompleteLesson(f.ctx, user.ID, lesson.ID); !errors.Is(err, util.ErrInvalidState) {
		t.Fatalf("CompleteLesson cancelled: got %v", err)
	}
	if _, err := f.progress.CompleteLesson(f.ctx, user.ID, 9999); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("missing lesson: got %v", err)
	}
}

func TestCompleteLesson_Idempotent(t *testing.T) {
	f := newFixture(t)
	course, section := f.course(t)
	lesson := f.lesson(t, section)
	f.lesson(t, section)
	user := f.student(t)
	f.enroll(t, user, course)

	f.completeLesson(t, user, lesson)
	p := f.completeLesson(t, user, lesson)
	if p.CompletedLessons != 1 || p.ProgressPercentage != 50 {
		t.Fatalf("repeated completion counted twice: %+v", p)
	}

	var n int64
	f.db.Model(&model.LessonProgress{}).Where("user_id = ?", user.ID).Count(&n)
	if n != 1 {
		t.Fatalf("lesson progress rows = %d", n)
	}
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	course, _ := f.course(t)
	user := f.student(t)

	first, err := f.progress.Enroll(f.ctx, user.ID, course.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	second, err := f.progress.Enroll(f.ctx, user.ID, course.ID)
	if err != nil || second.ID != first.ID {
		t.Fatalf("second Enroll = %+v, %v", second, err)
	}

	f.db.Model(&model.Enrollment{}).Where("id = ?", first.ID).Update("status", model.EnrollmentCancelled)
	again, err := f.progress.Enroll(f.ctx, user.ID, course.ID)
	if err != nil || again.ID != first.ID || again.Status != model.EnrollmentActive {
		t.Fatalf("reactivation = %+v, %v", again, err)
	}

	if _, err := f.progress.Enroll(f.ctx, user.ID, 9999); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("missing course: got %v", err)
	}
}
