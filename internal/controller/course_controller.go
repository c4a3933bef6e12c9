package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Service *service.CourseService
}

func NewCourseController(svc *service.CourseService) *CourseController {
	return &CourseController{Service: svc}
}

type publishRequest struct {
	Published bool `json:"published"`
}

// @Summary Create a course
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "Course"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Service.CreateCourse(ctx.Request.Context(), actorOf(user), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary Delete a course with its sections, lessons and quizzes
// @Tags teacher
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response
// @Router /teacher/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.DeleteCourse(ctx.Request.Context(), actorOf(user), courseID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": courseID})
}

// @Summary Add a section to a course
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Param body body service.CreateSectionRequest true "Section"
// @Success 201 {object} util.Response{data=model.Section}
// @Router /teacher/courses/{id}/sections [post]
func (c *CourseController) AddSection(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.CreateSectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	section, err := c.Service.AddSection(ctx.Request.Context(), actorOf(user), courseID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, section)
}

// @Summary Add a lesson to a section
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Section ID"
// @Param body body service.CreateLessonRequest true "Lesson"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /teacher/sections/{id}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	sectionID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.CreateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.Service.AddLesson(ctx.Request.Context(), actorOf(user), sectionID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// @Summary Add a quiz with its questions to a section
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Section ID"
// @Param body body service.CreateQuizRequest true "Quiz"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /teacher/sections/{id}/quizzes [post]
func (c *CourseController) AddQuiz(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	sectionID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.AddQuiz(ctx.Request.Context(), actorOf(user), sectionID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary Publish or unpublish a quiz
// @Tags teacher
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body publishRequest true "Publish flag"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /teacher/quizzes/{id}/publish [patch]
func (c *CourseController) SetQuizPublished(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req publishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.SetQuizPublished(ctx.Request.Context(), actorOf(user), quizID, req.Published)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}
