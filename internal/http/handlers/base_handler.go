// README: Base handler utilities (JSON helpers, error mapping, caller resolution).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/http/middleware"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/sentinel"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	var verr *sentinel.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, sentinel.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, sentinel.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// currentProfile resolves the authenticated identity into a profile.
// Writes the error response itself; callers return on nil.
func currentProfile(c *gin.Context, profiles *profile.Service) *profile.Profile {
	p, err := profiles.GetByIdentity(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// authenticated but never registered a donor profile
			writeError(c, http.StatusUnauthorized, "no profile for identity")
			return nil
		}
		writeDomainError(c, err)
		return nil
	}
	return p
}
