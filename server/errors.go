package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/core"
)

// GenericErrorMessage is shown for failures that carry no user-facing text
const GenericErrorMessage = "Something went wrong. Please try again."

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindState:
		return http.StatusConflict
	case core.KindTransport:
		if errors.Is(err, core.ErrCircuitBreakerOpen) || errors.Is(err, core.ErrAIUnavailable) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case core.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the shopper. Unclassified errors never
// leak their details.
func messageFor(err error) string {
	var se *core.StoreError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch core.KindOf(err) {
	case core.KindUnknown, core.KindConfig, core.KindStorage:
		return GenericErrorMessage
	default:
		return err.Error()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorWithContext(c.Request.Context(), "Request failed", map[string]interface{}{
			"path":   c.FullPath(),
			"status": status,
			"error":  err.Error(),
		})
	}
	c.AbortWithStatusJSON(status, errorBody{Error: messageFor(err), Kind: core.KindOf(err)})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: message, Kind: core.KindValidation})
}
