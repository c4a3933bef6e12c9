package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"elearning_backend/pkg/tracing"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitQuizRequest struct {
	Answers          []SubmittedAnswer `json:"answers"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
}

type AnswerReview struct {
	QuestionID    uint               `json:"questionId"`
	QuestionText  string             `json:"questionText"`
	QuestionType  model.QuestionType `json:"questionType"`
	UserAnswer    string             `json:"userAnswer"`
	CorrectAnswer string             `json:"correctAnswer"`
	IsCorrect     bool               `json:"isCorrect"`
	EarnedScore   float64            `json:"earnedScore"`
	MaxScore      float64            `json:"maxScore"`
	Explanation   string             `json:"explanation,omitempty"`
}

type SubmitResult struct {
	AttemptID      uint            `json:"attemptId"`
	QuizID         uint            `json:"quizId"`
	AttemptNo      int             `json:"attemptNo"`
	Score          float64         `json:"score"`
	EarnedPoints   float64         `json:"earnedPoints"`
	TotalPoints    float64         `json:"totalPoints"`
	CorrectAnswers int             `json:"correctAnswers"`
	TotalQuestions int             `json:"totalQuestions"`
	IsPassed       bool            `json:"isPassed"`
	PassingScore   float64         `json:"passingScore"`
	BestScore      float64         `json:"bestScore"`
	TimeSpent      int             `json:"timeSpent"`
	TakenAt        time.Time       `json:"takenAt"`
	Answers        []AnswerReview  `json:"answers"`
	Progress       *ProgressResult `json:"progress,omitempty"`
}

type QuizSubmittedEvent struct {
	AttemptID uint    `json:"attemptId"`
	UserID    uint    `json:"userId"`
	QuizID    uint    `json:"quizId"`
	CourseID  uint    `json:"courseId"`
	AttemptNo int     `json:"attemptNo"`
	Score     float64 `json:"score"`
	IsPassed  bool    `json:"isPassed"`
}

type StudentOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type StudentQuestion struct {
	ID           uint               `json:"id"`
	Text         string             `json:"text"`
	QuestionType model.QuestionType `json:"questionType"`
	Score        float64            `json:"score"`
	Options      []StudentOption    `json:"options"`
}

// StudentQuizView is a quiz without anything that gives the answers away.
type StudentQuizView struct {
	ID           uint              `json:"id"`
	CourseID     uint              `json:"courseId"`
	Title        string            `json:"title"`
	TimeLimit    int               `json:"timeLimit"`
	PassingScore float64           `json:"passingScore"`
	MaxAttempts  int               `json:"maxAttempts"`
	Questions    []StudentQuestion `json:"questions"`
}

type AttemptSummary struct {
	ID             uint      `json:"id"`
	AttemptNo      int       `json:"attemptNo"`
	Score          float64   `json:"score"`
	IsPassed       bool      `json:"isPassed"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	TakenAt        time.Time `json:"takenAt"`
}

type AttemptHistory struct {
	QuizID            uint             `json:"quizId"`
	Attempts          []AttemptSummary `json:"attempts"`
	BestScore         *float64         `json:"bestScore,omitempty"`
	RemainingAttempts *int             `json:"remainingAttempts,omitempty"`
}

type QuizService struct {
	DB         *gorm.DB
	QuizRepo   *repository.QuizRepository
	ResultRepo *repository.TestResultRepository
	OutboxRepo *repository.OutboxRepository
	Progress   *ProgressService
	Cfg        *config.GradingConfig
}

func NewQuizService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	resultRepo *repository.TestResultRepository,
	outboxRepo *repository.OutboxRepository,
	progress *ProgressService,
	cfg *config.GradingConfig,
) *QuizService {
	return &QuizService{
		DB:         db,
		QuizRepo:   quizRepo,
		ResultRepo: resultRepo,
		OutboxRepo: outboxRepo,
		Progress:   progress,
		Cfg:        cfg,
	}
}

type gradedQuiz struct {
	earned  float64
	total   float64
	correct int
	answers []model.QuizAnswer
	reviews []AnswerReview
}

func gradeQuiz(quiz *model.Quiz, byQuestion map[uint]*SubmittedAnswer) *gradedQuiz {
	g := &gradedQuiz{
		answers: make([]model.QuizAnswer, 0, len(quiz.Questions)),
		reviews: make([]AnswerReview, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		a := byQuestion[q.ID]
		res := Grade(q, a)

		g.total += questionWeight(q)
		g.earned += res.EarnedScore
		if res.IsCorrect {
			g.correct++
		}
		g.answers = append(g.answers, model.QuizAnswer{
			QuestionID:     q.ID,
			SubmittedValue: submittedValue(a),
			IsCorrect:      res.IsCorrect,
			EarnedScore:    res.EarnedScore,
		})
		g.reviews = append(g.reviews, reviewOf(q, a, res))
	}
	return g
}

func reviewOf(q *model.Question, a *SubmittedAnswer, res GradeResult) AnswerReview {
	return AnswerReview{
		QuestionID:    q.ID,
		QuestionText:  q.Text,
		QuestionType:  q.QuestionType,
		UserAnswer:    UserAnswerText(q, a),
		CorrectAnswer: CorrectAnswerText(q),
		IsCorrect:     res.IsCorrect,
		EarnedScore:   res.EarnedScore,
		MaxScore:      questionWeight(q),
		Explanation:   q.Explanation,
	}
}

// indexAnswers keys the submitted answers by question. A question id outside
// the quiz rejects the whole submission; for repeated ids the last one wins.
func indexAnswers(quiz *model.Quiz, answers []SubmittedAnswer) (map[uint]*SubmittedAnswer, error) {
	known := make(map[uint]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}

	out := make(map[uint]*SubmittedAnswer, len(answers))
	for i := range answers {
		id := answers[i].QuestionID
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("question %d: %w", id, util.ErrQuestionNotInQuiz)
		}
		out[id] = &answers[i]
	}
	return out, nil
}

// Submit grades a submission and stores it as a new attempt together with its
// answers. Progress is recomputed after the attempt is committed; a failure
// there never undoes the grade.
func (s *QuizService) Submit(ctx context.Context, userID, quizID uint, req SubmitQuizRequest) (result *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.Submit", userID, quizID)
	defer func() {
		if err != nil {
			monitoring.QuizSubmissions.WithLabelValues("rejected").Inc()
		}
		tracing.End(span, err)
	}()

	quiz, err := s.QuizRepo.WithTx(s.DB.WithContext(ctx)).FindWithQuestions(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotFound
	}
	if len(quiz.Questions) == 0 {
		return nil, util.ErrQuizHasNoQuestions
	}

	byQuestion, err := indexAnswers(quiz, req.Answers)
	if err != nil {
		return nil, err
	}

	graded := gradeQuiz(quiz, byQuestion)
	score := util.Percentage(graded.earned, graded.total)
	passed := util.ReachesPercentage(graded.earned, graded.total, quiz.PassingScore)
	takenAt := time.Now()

	retries := s.Cfg.MaxSubmitRetries
	if retries < 1 {
		retries = 1
	}

	var attempt *model.TestResult
	for i := 0; i < retries; i++ {
		attempt = &model.TestResult{
			QuizID:         quiz.ID,
			UserID:         userID,
			Score:          score,
			EarnedPoints:   graded.earned,
			TotalPoints:    graded.total,
			CorrectAnswers: graded.correct,
			TotalQuestions: len(quiz.Questions),
			IsPassed:       passed,
			TimeSpent:      max(req.TimeSpentSeconds, 0),
			TakenAt:        takenAt,
			Answers:        append([]model.QuizAnswer(nil), graded.answers...),
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			results := s.ResultRepo.WithTx(tx)
			n, err := results.CountAttempts(userID, quiz.ID)
			if err != nil {
				return err
			}
			if quiz.MaxAttempts > 0 && int(n) >= quiz.MaxAttempts {
				return util.ErrAttemptLimitReached
			}
			attempt.AttemptNo = int(n) + 1

			if err := results.Create(attempt); err != nil {
				return err
			}
			return s.OutboxRepo.WithTx(tx).Add(model.TopicQuizSubmitted, QuizSubmittedEvent{
				AttemptID: attempt.ID,
				UserID:    userID,
				QuizID:    quiz.ID,
				CourseID:  quiz.CourseID,
				AttemptNo: attempt.AttemptNo,
				Score:     score,
				IsPassed:  passed,
			})
		})
		if err == nil || !repository.IsDuplicateKey(err) {
			break
		}
		logger.Log.Warn("Attempt number taken by a concurrent submission, retrying",
			zap.Uint("userID", userID),
			zap.Uint("quizID", quiz.ID),
			zap.Int("try", i+1),
		)
	}
	if err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrConcurrentAttempt
		}
		return nil, err
	}

	if passed {
		monitoring.QuizSubmissions.WithLabelValues("passed").Inc()
	} else {
		monitoring.QuizSubmissions.WithLabelValues("failed").Inc()
	}
	logger.Log.Info("Quiz submitted",
		zap.Uint("userID", userID),
		zap.Uint("quizID", quiz.ID),
		zap.Int("attemptNo", attempt.AttemptNo),
		zap.Float64("score", score),
		zap.Bool("passed", passed),
	)

	result = &SubmitResult{
		AttemptID:      attempt.ID,
		QuizID:         quiz.ID,
		AttemptNo:      attempt.AttemptNo,
		Score:          score,
		EarnedPoints:   graded.earned,
		TotalPoints:    graded.total,
		CorrectAnswers: graded.correct,
		TotalQuestions: len(quiz.Questions),
		IsPassed:       passed,
		PassingScore:   quiz.PassingScore,
		BestScore:      score,
		TimeSpent:      attempt.TimeSpent,
		TakenAt:        takenAt,
		Answers:        graded.reviews,
	}

	if best, ok, berr := s.ResultRepo.WithTx(s.DB.WithContext(ctx)).BestScore(userID, quiz.ID); berr != nil {
		logger.Log.Warn("Failed to load best score", zap.Uint("quizID", quiz.ID), zap.Error(berr))
	} else if ok {
		result.BestScore = best
	}

	result.Progress = s.recomputeProgress(ctx, userID, quiz.CourseID)
	return result, nil
}

func (s *QuizService) recomputeProgress(ctx context.Context, userID, courseID uint) *ProgressResult {
	if s.Progress == nil {
		return nil
	}
	p, err := s.Progress.Recompute(ctx, userID, courseID)
	switch {
	case err == nil:
		return p
	case errors.Is(err, util.ErrNotEnrolled), errors.Is(err, util.ErrEnrollmentCancelled):
		return nil
	default:
		logger.Log.Error("Progress recompute after submission failed",
			zap.Uint("userID", userID),
			zap.Uint("courseID", courseID),
			zap.Error(err),
		)
		return nil
	}
}

func (s *QuizService) GetQuizForStudent(ctx context.Context, quizID uint) (*StudentQuizView, error) {
	quiz, err := s.QuizRepo.WithTx(s.DB.WithContext(ctx)).FindWithQuestions(quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, util.ErrQuizNotFound
	}

	view := &StudentQuizView{
		ID:           quiz.ID,
		CourseID:     quiz.CourseID,
		Title:        quiz.Title,
		TimeLimit:    quiz.TimeLimit,
		PassingScore: quiz.PassingScore,
		MaxAttempts:  quiz.MaxAttempts,
		Questions:    make([]StudentQuestion, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		sq := StudentQuestion{
			ID:           q.ID,
			Text:         q.Text,
			QuestionType: q.QuestionType,
			Score:        questionWeight(&q),
			Options:      []StudentOption{},
		}
		// the accepted answers of a blank are its options
		if q.QuestionType != model.FillInBlank {
			for _, o := range q.Options {
				sq.Options = append(sq.Options, StudentOption{ID: o.ID, Text: o.Text})
			}
		}
		view.Questions = append(view.Questions, sq)
	}
	return view, nil
}

func (s *QuizService) ListAttempts(ctx context.Context, userID, quizID uint) (*AttemptHistory, error) {
	db := s.DB.WithContext(ctx)
	quiz, err := s.QuizRepo.WithTx(db).Unscoped().FindByID(quizID)
	if err != nil {
		return nil, err
	}
	results, err := s.ResultRepo.WithTx(db).ListByUserAndQuiz(userID, quizID)
	if err != nil {
		return nil, err
	}

	h := &AttemptHistory{QuizID: quizID, Attempts: make([]AttemptSummary, 0, len(results))}
	for _, r := range results {
		h.Attempts = append(h.Attempts, AttemptSummary{
			ID:             r.ID,
			AttemptNo:      r.AttemptNo,
			Score:          r.Score,
			IsPassed:       r.IsPassed,
			CorrectAnswers: r.CorrectAnswers,
			TotalQuestions: r.TotalQuestions,
			TimeSpent:      r.TimeSpent,
			TakenAt:        r.TakenAt,
		})
		if h.BestScore == nil || r.Score > *h.BestScore {
			best := r.Score
			h.BestScore = &best
		}
	}
	if quiz.MaxAttempts > 0 {
		remaining := max(quiz.MaxAttempts-len(results), 0)
		h.RemainingAttempts = &remaining
	}
	return h, nil
}

// GetAttemptReview rebuilds the breakdown of a stored attempt. Attempts of
// other users are reported as not found.
func (s *QuizService) GetAttemptReview(ctx context.Context, userID, attemptID uint) (*SubmitResult, error) {
	db := s.DB.WithContext(ctx)
	attempt, err := s.ResultRepo.WithTx(db).FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptNotFound
	}

	quiz, err := s.QuizRepo.WithTx(db).Unscoped().FindWithQuestions(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions := make(map[uint]*model.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	reviews := make([]AnswerReview, 0, len(attempt.Answers))
	for _, ans := range attempt.Answers {
		res := GradeResult{IsCorrect: ans.IsCorrect, EarnedScore: ans.EarnedScore}
		q, ok := questions[ans.QuestionID]
		if !ok {
			// question removed after the attempt
			reviews = append(reviews, AnswerReview{QuestionID: ans.QuestionID, IsCorrect: res.IsCorrect, EarnedScore: res.EarnedScore})
			continue
		}
		reviews = append(reviews, reviewOf(q, decodeSubmittedValue(ans.SubmittedValue), res))
	}

	best, _, err := s.ResultRepo.WithTx(db).BestScore(userID, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		AttemptNo:      attempt.AttemptNo,
		Score:          attempt.Score,
		EarnedPoints:   attempt.EarnedPoints,
		TotalPoints:    attempt.TotalPoints,
		CorrectAnswers: attempt.CorrectAnswers,
		TotalQuestions: attempt.TotalQuestions,
		IsPassed:       attempt.IsPassed,
		PassingScore:   quiz.PassingScore,
		BestScore:      best,
		TimeSpent:      attempt.TimeSpent,
		TakenAt:        attempt.TakenAt,
		Answers:        reviews,
	}, nil
}

func (s *QuizService) BestScores(ctx context.Context, userID uint, quizIDs []uint) (map[uint]float64, error) {
	return s.ResultRepo.WithTx(s.DB.WithContext(ctx)).BestScores(userID, quizIDs)
}
