package middleware

import (
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "middleware-test-secret"

func newRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := gin.New()
	r.GET("/private", AuthMiddleware(cfg), RoleMiddleware(roles...), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	return r
}

func token(t *testing.T, id uint, role model.UserRole, secret string) string {
	t.Helper()
	u := &model.User{Role: role}
	u.ID = id
	tok, err := util.GenerateJWT(u, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		roles  []model.UserRole
		header string
		query  string
		want   int
	}{
		{name: "no token", roles: []model.UserRole{model.Student}, want: http.StatusUnauthorized},
		{name: "bad signature", roles: []model.UserRole{model.Student}, header: "Bearer " + token(t, 1, model.Student, "other"), want: http.StatusUnauthorized},
		{name: "student allowed", roles: []model.UserRole{model.Student}, header: "Bearer " + token(t, 1, model.Student, testSecret), want: http.StatusOK},
		{name: "token in query", roles: []model.UserRole{model.Student}, query: token(t, 1, model.Student, testSecret), want: http.StatusOK},
		{name: "student on teacher route", roles: []model.UserRole{model.Teacher}, header: "Bearer " + token(t, 1, model.Student, testSecret), want: http.StatusForbidden},
		{name: "admin passes any role", roles: []model.UserRole{model.Teacher}, header: "Bearer " + token(t, 1, model.Admin, testSecret), want: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := "/private"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			newRouter(tc.roles...).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
