package httpapi

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"master-o-quizz/internal/domain/quiz"
)

// wantsCSV format=csv 時改回傳 CSV 檔案。
func wantsCSV(c *gin.Context) bool {
	return c.Query("format") == "csv"
}

func (s *Server) respondReport(c *gin.Context, name, fallback string, data func(context.Context) (any, error), export func(context.Context) (string, error)) {
	ctx := c.Request.Context()
	if wantsCSV(c) {
		body, err := export(ctx)
		if err != nil {
			log.Printf("[Report] export %s: %v", name, err)
			respondError(c, http.StatusInternalServerError, errCodeInternal, fallback)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
		return
	}
	out, err := data(ctx)
	if err != nil {
		log.Printf("[Report] %s: %v", name, err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, fallback)
		return
	}
	respondOK(c, http.StatusOK, "", out)
}

func (s *Server) handleUserPerformance(c *gin.Context) {
	s.respondReport(c, "user-performance", "Failed to fetch user performance",
		func(ctx context.Context) (any, error) { return s.reportUC.UserPerformance(ctx) },
		s.reportUC.ExportUserPerformanceCSV,
	)
}

func (s *Server) handleSkillGap(c *gin.Context) {
	s.respondReport(c, "skill-gap", "Failed to fetch skill gap report",
		func(ctx context.Context) (any, error) { return s.reportUC.SkillGap(ctx) },
		s.reportUC.ExportSkillGapCSV,
	)
}

func (s *Server) handleTimeReport(c *gin.Context) {
	filter, err := quiz.ParseFilterType(c.Query("filterType"))
	if err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "filterType must be week or month")
		return
	}
	s.respondReport(c, "time-report", "Failed to fetch time-based report",
		func(ctx context.Context) (any, error) { return s.reportUC.TimeReport(ctx, filter) },
		func(ctx context.Context) (string, error) { return s.reportUC.ExportTimeReportCSV(ctx, filter) },
	)
}
