package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	credAuth "github.com/MrEthical07/credAuth"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// Order matters: specific validation errors come before ErrValidation.
var errorMappings = []errorMapping{
	{credAuth.ErrRateLimited, http.StatusTooManyRequests, "Too many requests, try again later"},
	{credAuth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid Credentials!"},
	{credAuth.ErrMissingFields, http.StatusUnprocessableEntity, "Fill in all fields"},
	{credAuth.ErrPasswordTooShort, http.StatusUnprocessableEntity, "Password is too short!"},
	{credAuth.ErrPasswordMismatch, http.StatusUnprocessableEntity, "Passwords do not match!"},
	{credAuth.ErrPasswordReuse, http.StatusUnprocessableEntity, "Cannot reuse current password."},
	{credAuth.ErrCurrentPasswordRequired, http.StatusUnprocessableEntity, "Current Password Required for Account Update"},
	{credAuth.ErrValidation, http.StatusUnprocessableEntity, "Invalid request"},
	{credAuth.ErrAccountExists, http.StatusUnprocessableEntity, "Email Already Exists!"},
	{credAuth.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{credAuth.ErrTokenInvalid, http.StatusUnauthorized, "Unauthorized. Invalid token"},
}

// statusFor maps an engine error to a status code and a client-safe message.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Something went wrong, try again later"
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("credAuth: request failed", "op", op, "error", err)
	}
	c.JSON(status, gin.H{"message": message})
}
