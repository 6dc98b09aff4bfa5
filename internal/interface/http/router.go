package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"master-o-quizz/internal/application/auth"
)

// Handler 建立 gin engine 並註冊所有路由。
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.ginLogger())
	r.Use(s.metricsMiddleware())
	r.Use(corsMiddleware())

	r.GET("/ping", s.handlePing)
	r.GET("/api/ping", s.handlePing)
	r.GET("/api/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/signup", s.handleSignup)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/me", s.handleRefresh)
		authGroup.POST("/logout", s.handleLogout)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/skills/create", s.requireAuth(auth.PermSkillWrite), s.handleCreateSkill)
		admin.GET("/skills/", s.requireAuth(auth.PermSkillRead), s.handleListSkills)

		admin.POST("/question/create", s.requireAuth(auth.PermQuestionWrite), s.handleCreateQuestion)
		admin.GET("/question/", s.handleListQuestions)
		admin.POST("/question/", s.requireAuth(auth.PermQuestionAnswer), s.handleCheckAnswer)

		admin.GET("/report/user-performance", s.requireAuth(auth.PermReportsRead), s.handleUserPerformance)
		admin.GET("/report/skill-gap", s.requireAuth(auth.PermReportsRead), s.handleSkillGap)
		admin.GET("/report/time-report", s.requireAuth(auth.PermReportsRead), s.handleTimeReport)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, errCodeNotFound, "Route not found")
	})
	return r
}
