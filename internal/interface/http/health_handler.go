package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	dbinfra "master-o-quizz/internal/infrastructure/db"
)

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "pong",
		"timestamp": time.Now().Unix(),
		"status":    "alive",
	})
}

// handleHealth 回報題庫儲存狀態：postgres 會一併檢查 migration 是否已執行。
func (s *Server) handleHealth(c *gin.Context) {
	store, dbStatus := "memory", "using_memory"
	if s.db != nil {
		store, dbStatus = "postgres", "ok"
		if err := dbinfra.Verify(c.Request.Context(), s.db); err != nil {
			dbStatus = "error: " + err.Error()
			if errors.Is(err, dbinfra.ErrSchemaMissing) {
				dbStatus = "schema_missing"
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"health":  "ok",
		"store":   store,
		"db":      dbStatus,
		"time":    time.Now().Format(time.RFC3339),
	})
}
