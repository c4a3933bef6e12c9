package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	Service *service.CertificateService
}

func NewCertificateController(svc *service.CertificateService) *CertificateController {
	return &CertificateController{Service: svc}
}

// @Summary Issue my certificate for a completed course
// @Description Returns the existing certificate when one was already issued
// @Tags certificate
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Course ID"
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 400 {object} util.Response
// @Router /courses/{id}/certificate [post]
func (c *CertificateController) Issue(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	cert, err := c.Service.IssueIfEligible(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// @Summary List my certificates
// @Tags certificate
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CertificateView}
// @Router /certificates/mine [get]
func (c *CertificateController) ListMine(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	views, err := c.Service.ListForUser(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// @Summary Verify a certificate by code
// @Tags certificate
// @Produce json
// @Param code path string true "Certificate code"
// @Success 200 {object} util.Response{data=service.CertificateView}
// @Failure 404 {object} util.Response
// @Router /public/certificates/{code} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	view, err := c.Service.GetByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
