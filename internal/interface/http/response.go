package httpapi

import (
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// envelope 成功回應的外層結構，客戶端會取出 data。
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Success:   false,
		Message:   msg,
		Error:     msg,
		ErrorCode: code,
	})
}

func respondOK(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, envelope{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
