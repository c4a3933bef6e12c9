package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Service *service.ProgressService
}

func NewProgressController(svc *service.ProgressService) *ProgressController {
	return &ProgressController{Service: svc}
}

// @Summary Enroll in a course
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /courses/{id}/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.Service.Enroll(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// @Summary Recompute and get my course progress
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response{data=service.ProgressResult}
// @Router /courses/{id}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	progress, err := c.Service.Recompute(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary Mark a lesson completed
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} util.Response{data=service.ProgressResult}
// @Router /lessons/{id}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	lessonID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	progress, err := c.Service.CompleteLesson(ctx.Request.Context(), user.UserID, lessonID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
