package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliamunaev/inflight/internal/apperr"
	"github.com/iliamunaev/inflight/internal/model"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(c echo.Context) error {
	st := s.tracker.State()
	resp := model.StateResponse{
		CallingCount: st.CallingCount,
		Active:       st.Active(),
		Seq:          st.Seq,
		Observers:    s.tracker.Subscribers(),
	}
	if s.pool != nil {
		resp.Pool = &model.PoolState{Size: s.pool.Size(), InUse: s.pool.InUse()}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListExclusions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.exclusions())
}

func (s *Server) handleAddExclusion(c echo.Context) error {
	path, err := decodePath(c)
	if err != nil {
		return err
	}
	s.tracker.AddExcludedPath(path)
	s.log.Info(c.Request().Context(), "exclusion added", zap.String("path", path))
	return c.JSON(http.StatusCreated, s.exclusions())
}

func (s *Server) handleRemoveExclusion(c echo.Context) error {
	path, err := decodePath(c)
	if err != nil {
		return err
	}
	s.tracker.RemoveExcludedPath(path)
	s.log.Info(c.Request().Context(), "exclusion removed", zap.String("path", path))
	return c.JSON(http.StatusOK, s.exclusions())
}

// handleFetch runs a batch of tracked GET requests.
//
// Processing is executed with a per-request timeout.
// The response always contains a structured FetchResponse.
func (s *Server) handleFetch(c echo.Context) error {
	var req model.FetchRequest
	if err := decodeJSON(c.Request().Body, &req); err != nil {
		return err
	}
	if len(req.URLs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "urls is required")
	}

	// Set a deadline for the entire batch
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.requestTimeout)
	defer cancel()

	results, err := s.fetcher.FetchAll(ctx, req.URLs)

	resp := model.FetchResponse{
		Status:  "ok",
		Results: results,
	}
	if err != nil {
		resp.Status = "error"
		resp.Error = &model.ErrorPayload{
			Kind:    apperr.Kind(err),
			Message: "fetch failed",
		}
	}
	return c.JSON(apperr.HTTPStatus(err), resp)
}

func (s *Server) exclusions() model.ExclusionsResponse {
	paths := s.tracker.ExcludedPaths()
	if paths == nil {
		paths = []string{}
	}
	return model.ExclusionsResponse{Paths: paths}
}

func decodePath(c echo.Context) (string, error) {
	var req model.ExclusionRequest
	if err := decodeJSON(c.Request().Body, &req); err != nil {
		return "", err
	}
	if req.Path == "" {
		return "", apperr.ErrEmptyPath
	}
	return req.Path, nil
}

// decodeJSON decodes exactly one JSON value with no unknown fields.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}
	return nil
}
