package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "room-user-service/pkg/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AbortWithError writes the response for err and stops the chain. Typed
// application errors keep their status and message; anything else is a
// generic 500 so storage details never reach the client.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var typed pkgerrors.HTTPStatuser
	if !errors.As(err, &typed) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := typed.HTTPStatus()
	message := typed.Error()
	if status >= http.StatusInternalServerError {
		message = "An internal error occurred"
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   typed.Code(),
		Message: message,
	})
}
