package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body shape shared by all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error sends an error response with the given status, code and message.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, code, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, code, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Internal sends a 500 Internal Server Error response.
func Internal(c *gin.Context, code, message string) {
	Error(c, http.StatusInternalServerError, code, message)
}
