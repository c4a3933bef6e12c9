package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// @Summary Get a quiz for taking
// @Description Questions and options without correct answers
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=service.StudentQuizView}
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Service.GetQuizForStudent(ctx.Request.Context(), quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary Submit a quiz attempt
// @Tags quiz
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body service.SubmitQuizRequest true "Answers"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Submit(ctx.Request.Context(), user.UserID, quizID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary List my attempts of a quiz
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=service.AttemptHistory}
// @Router /quizzes/{id}/attempts [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	history, err := c.Service.ListAttempts(ctx.Request.Context(), user.UserID, quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// @Summary Review a graded attempt
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Router /attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	attemptID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	review, err := c.Service.GetAttemptReview(ctx.Request.Context(), user.UserID, attemptID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
