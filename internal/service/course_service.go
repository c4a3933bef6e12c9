package service

import (
	"context"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPassingScore = 50

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsPublished bool   `json:"isPublished"`
}

type CreateSectionRequest struct {
	Title    string `json:"title" binding:"required"`
	Position int    `json:"position"`
}

type CreateLessonRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type OptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
	Position  int    `json:"position"`
}

type QuestionRequest struct {
	Text           string             `json:"text" binding:"required"`
	QuestionType   model.QuestionType `json:"questionType" binding:"required"`
	Score          *float64           `json:"score"`
	CorrectBoolean *bool              `json:"correctBoolean"`
	Explanation    string             `json:"explanation"`
	Position       int                `json:"position"`
	Options        []OptionRequest    `json:"options"`
}

type CreateQuizRequest struct {
	Title        string            `json:"title" binding:"required"`
	TimeLimit    int               `json:"timeLimit"`
	PassingScore *float64          `json:"passingScore"`
	MaxAttempts  int               `json:"maxAttempts"`
	IsPublished  bool              `json:"isPublished"`
	Questions    []QuestionRequest `json:"questions"`
}

// Actor is the authenticated user performing an authoring operation.
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func (a Actor) canEdit(course *model.Course) bool {
	return a.Role == model.Admin || course.CreatorID == a.UserID
}

type CourseService struct {
	DB         *gorm.DB
	CourseRepo *repository.CourseRepository
	QuizRepo   *repository.QuizRepository
}

func NewCourseService(db *gorm.DB, courseRepo *repository.CourseRepository, quizRepo *repository.QuizRepository) *CourseService {
	return &CourseService{DB: db, CourseRepo: courseRepo, QuizRepo: quizRepo}
}

func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CreateCourseRequest) (*model.Course, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.ValidationError("title required")
	}
	course := &model.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatorID:   actor.UserID,
		IsPublished: req.IsPublished,
	}
	if err := s.CourseRepo.WithTx(s.DB.WithContext(ctx)).Create(course); err != nil {
		return nil, err
	}
	logger.Log.Info("Course created", zap.Uint("courseID", course.ID), zap.Uint("creatorID", actor.UserID))
	return course, nil
}

func (s *CourseService) editableCourse(repo *repository.CourseRepository, actor Actor, courseID uint) (*model.Course, error) {
	course, err := repo.FindByID(courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canEdit(course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) AddSection(ctx context.Context, actor Actor, courseID uint, req CreateSectionRequest) (*model.Section, error) {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	if _, err := s.editableCourse(repo, actor, courseID); err != nil {
		return nil, err
	}
	section := &model.Section{CourseID: courseID, Title: req.Title, Position: req.Position}
	if err := repo.CreateSection(section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *CourseService) AddLesson(ctx context.Context, actor Actor, sectionID uint, req CreateLessonRequest) (*model.Lesson, error) {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	section, err := repo.FindSectionByID(sectionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableCourse(repo, actor, section.CourseID); err != nil {
		return nil, err
	}
	lesson := &model.Lesson{
		SectionID: section.ID,
		CourseID:  section.CourseID,
		Title:     req.Title,
		Content:   req.Content,
		Position:  req.Position,
	}
	if err := repo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// AddQuiz validates and stores a quiz with its questions and options.
func (s *CourseService) AddQuiz(ctx context.Context, actor Actor, sectionID uint, req CreateQuizRequest) (*model.Quiz, error) {
	db := s.DB.WithContext(ctx)
	repo := s.CourseRepo.WithTx(db)
	section, err := repo.FindSectionByID(sectionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableCourse(repo, actor, section.CourseID); err != nil {
		return nil, err
	}

	quiz, err := buildQuiz(section, req)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.WithTx(db).Create(quiz); err != nil {
		return nil, err
	}
	logger.Log.Info("Quiz created",
		zap.Uint("quizID", quiz.ID),
		zap.Uint("courseID", quiz.CourseID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

func buildQuiz(section *model.Section, req CreateQuizRequest) (*model.Quiz, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, util.ValidationError("title required")
	}
	passing := float64(defaultPassingScore)
	if req.PassingScore != nil {
		passing = *req.PassingScore
	}
	if passing < 0 || passing > 100 {
		return nil, util.ValidationError("passingScore must be between 0 and 100")
	}
	if req.MaxAttempts < 0 || req.TimeLimit < 0 {
		return nil, util.ValidationError("maxAttempts and timeLimit must not be negative")
	}
	if req.IsPublished && len(req.Questions) == 0 {
		return nil, util.ValidationError("a published quiz needs at least one question")
	}

	quiz := &model.Quiz{
		SectionID:    section.ID,
		CourseID:     section.CourseID,
		Title:        strings.TrimSpace(req.Title),
		TimeLimit:    req.TimeLimit,
		PassingScore: passing,
		MaxAttempts:  req.MaxAttempts,
		IsPublished:  req.IsPublished,
	}
	for i, qr := range req.Questions {
		q, err := buildQuestion(qr)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		quiz.Questions = append(quiz.Questions, *q)
	}
	return quiz, nil
}

func buildQuestion(req QuestionRequest) (*model.Question, error) {
	if !req.QuestionType.Valid() {
		return nil, util.ValidationError(fmt.Sprintf("unknown question type %q", req.QuestionType))
	}
	score := 1.0
	if req.Score != nil {
		score = *req.Score
	}
	if score < 0 {
		return nil, util.ValidationError("score must not be negative")
	}

	q := &model.Question{
		Text:           req.Text,
		QuestionType:   req.QuestionType,
		Score:          score,
		CorrectBoolean: req.CorrectBoolean,
		Explanation:    req.Explanation,
		Position:       req.Position,
	}
	correct := 0
	for _, o := range req.Options {
		opt := model.Option{Text: o.Text, IsCorrect: o.IsCorrect, Position: o.Position}
		// every listed blank answer is accepted
		if req.QuestionType == model.FillInBlank {
			opt.IsCorrect = true
		}
		if opt.IsCorrect {
			correct++
		}
		q.Options = append(q.Options, opt)
	}

	switch req.QuestionType {
	case model.SingleChoice:
		if correct != 1 {
			return nil, util.ValidationError("single choice question needs exactly one correct option")
		}
	case model.MultipleChoice:
		if correct < 1 {
			return nil, util.ValidationError("multiple choice question needs at least one correct option")
		}
	case model.TrueFalse:
		if req.CorrectBoolean == nil {
			if correct != 1 {
				return nil, util.ValidationError("true/false question needs correctBoolean or exactly one correct option")
			}
			if _, ok := CanonicalBoolean(q); !ok {
				return nil, util.ValidationError("correct option of a true/false question must read true or false")
			}
			break
		}
		for _, o := range q.Options {
			v, ok := parseBoolText(o.Text)
			if ok && o.IsCorrect && v != *req.CorrectBoolean {
				return nil, util.ValidationError(fmt.Sprintf("option %q is flagged correct but contradicts correctBoolean", o.Text))
			}
		}
	case model.FillInBlank:
		if correct < 1 {
			return nil, util.ValidationError("fill in the blank question needs at least one accepted answer")
		}
	}
	return q, nil
}

func (s *CourseService) SetQuizPublished(ctx context.Context, actor Actor, quizID uint, published bool) (*model.Quiz, error) {
	db := s.DB.WithContext(ctx)
	quizzes := s.QuizRepo.WithTx(db)
	quiz, err := quizzes.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableCourse(s.CourseRepo.WithTx(db), actor, quiz.CourseID); err != nil {
		return nil, err
	}
	if published {
		n, err := quizzes.CountQuestions(quizID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, util.ErrQuizHasNoQuestions
		}
	}
	if err := quizzes.SetPublished(quizID, published); err != nil {
		return nil, err
	}
	quiz.IsPublished = published
	return quiz, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, actor Actor, courseID uint) error {
	repo := s.CourseRepo.WithTx(s.DB.WithContext(ctx))
	if _, err := s.editableCourse(repo, actor, courseID); err != nil {
		return err
	}
	if err := repo.Delete(courseID); err != nil {
		return err
	}
	logger.Log.Info("Course deleted", zap.Uint("courseID", courseID), zap.Uint("by", actor.UserID))
	return nil
}
