package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	quizapp "master-o-quizz/internal/application/quiz"
	"master-o-quizz/internal/domain/quiz"
)

// respondQuizError 將領域錯誤轉成 HTTP 狀態。
func respondQuizError(c *gin.Context, err error, fallback string) {
	var ve quiz.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, errCodeBadRequest, ve.Message)
	case errors.Is(err, quiz.ErrSkillExists):
		respondError(c, http.StatusConflict, errCodeConflict, "Skill already exists")
	case errors.Is(err, quiz.ErrSkillNotFound):
		respondError(c, http.StatusNotFound, errCodeNotFound, "Skill not found")
	case errors.Is(err, quiz.ErrQuestionNotFound):
		respondError(c, http.StatusNotFound, errCodeNotFound, "Question not found")
	default:
		log.Printf("[Quiz] %s: %v", fallback, err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, fallback)
	}
}

func (s *Server) handleCreateSkill(c *gin.Context) {
	var body quiz.CreateSkillInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}
	sk, err := s.quizUC.CreateSkill(c.Request.Context(), body)
	if err != nil {
		respondQuizError(c, err, "Failed to create skill")
		return
	}
	respondOK(c, http.StatusCreated, "Skill created", sk)
}

func (s *Server) handleListSkills(c *gin.Context) {
	skills, err := s.quizUC.ListSkills(c.Request.Context())
	if err != nil {
		respondQuizError(c, err, "Failed to fetch skills")
		return
	}
	respondOK(c, http.StatusOK, "", skills)
}

func (s *Server) handleCreateQuestion(c *gin.Context) {
	var body quiz.CreateQuestionInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}
	q, err := s.quizUC.CreateQuestion(c.Request.Context(), body)
	if err != nil {
		respondQuizError(c, err, "Failed to create question")
		return
	}
	respondOK(c, http.StatusCreated, "Question created", q)
}

// queryInt 解析正整數查詢參數，無效時回傳預設值。
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func (s *Server) handleListQuestions(c *gin.Context) {
	page := queryInt(c, "page", quizapp.DefaultPage)
	limit := queryInt(c, "limit", quizapp.DefaultLimit)
	out, err := s.quizUC.ListQuestions(c.Request.Context(), page, limit)
	if err != nil {
		respondQuizError(c, err, "Failed to fetch questions")
		return
	}
	respondOK(c, http.StatusOK, "", out)
}

func (s *Server) handleCheckAnswer(c *gin.Context) {
	var body quiz.AnswerInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}
	caller := currentUserID(c)
	if body.UserID == "" {
		body.UserID = caller
	}
	if body.UserID != caller {
		respondError(c, http.StatusForbidden, errCodeForbidden, "Cannot answer for another user")
		return
	}
	res, err := s.quizUC.CheckAnswer(c.Request.Context(), body)
	if err != nil {
		respondQuizError(c, err, "Failed to check answer")
		return
	}
	respondOK(c, http.StatusOK, "", res)
}
