package httptransport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliamunaev/inflight/internal/apperr"
	"github.com/iliamunaev/inflight/internal/model"
)

// statusToKind maps echo's own errors (routing, binding) to kinds.
var statusToKind = map[int]string{
	http.StatusBadRequest:       "bad_request",
	http.StatusNotFound:         "not_found",
	http.StatusMethodNotAllowed: "method_not_allowed",
}

// handleError writes every handler error in the API error shape.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apperr.HTTPStatus(err)
	kind := apperr.Kind(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		kind = "internal"
		if k, ok := statusToKind[he.Code]; ok {
			kind = k
		}
		msg = fmt.Sprint(he.Message)
	}

	if status >= http.StatusInternalServerError {
		s.log.Error(c.Request().Context(), "request failed",
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
		// Internal error text is not exposed to clients.
		msg = http.StatusText(status)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, model.ErrorResponse{
		Status: "error",
		Error:  &model.ErrorPayload{Kind: kind, Message: msg},
	})
}
