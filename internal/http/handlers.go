package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
	"github.com/fyrsmithlabs/directoryd/internal/services"
)

// handleHealth reports liveness and the state of every collection. A failed
// collection does not make the daemon unhealthy.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:      "ok",
		Version:     s.config.Version,
		Collections: make(map[string]string),
	}
	for _, sum := range summarize(s.registry) {
		resp.Collections[sum.Kind] = sum.State
	}
	if s.health != nil {
		if h := s.health.Health(); h.Degraded {
			resp.Status = "degraded"
			resp.Reasons = h.Reasons
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListCollections(c echo.Context) error {
	return c.JSON(http.StatusOK, CollectionsResponse{Collections: summarize(s.registry)})
}

// lookup resolves the :kind parameter and tags the request context with it.
func (s *Server) lookup(c echo.Context) (*directory.Directory, error) {
	kind := directory.Kind(c.Param("kind"))
	d, err := s.registry.Get(kind)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnknownCollection):
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown collection: "+string(kind))
	case errors.Is(err, services.ErrClosed):
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "shutting down")
	default:
		return nil, err
	}

	req := c.Request()
	c.SetRequest(req.WithContext(logging.WithCollection(req.Context(), string(d.Kind()))))
	return d, nil
}

func (s *Server) handleView(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewResponse(d.View(), d.Definition()))
}

func (s *Server) handleGroups(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}
	v := d.View()
	groups := v.Groups
	if !d.Definition().Grouped && v.Status.Loaded() {
		groups = v.Filter.VisibleGroups(directory.GroupEntities(v.Status.Snapshot, d.Definition()))
	}
	return c.JSON(http.StatusOK, GroupsResponse{
		Kind:   string(v.Kind),
		State:  stateName(v.Status),
		Filter: v.Filter.String(),
		Groups: groups,
	})
}

func (s *Server) handleEntities(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}
	v := d.View()
	return c.JSON(http.StatusOK, EntitiesResponse{
		Kind:     string(v.Kind),
		State:    stateName(v.Status),
		Filter:   v.Filter.String(),
		Entities: v.Entities,
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse(d.Kind(), d.Status()))
}

// handleSetFilter selects a filter. It never triggers a load.
func (s *Server) handleSetFilter(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req FilterRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid filter request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Filter == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "filter field is required")
	}

	f := d.SetFilter(*req.Filter)
	s.logger.Debug(c.Request().Context(), "filter selected", zap.Stringer("filter", f))
	return c.JSON(http.StatusOK, viewResponse(d.View(), d.Definition()))
}

// handleReload resets the filter and fetches the collection again. It waits
// for the fetch unless the client goes away first; the fetch itself is never
// cancelled.
func (s *Server) handleReload(c echo.Context) error {
	d, err := s.lookup(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	st := d.Reload(ctx)
	s.logger.Info(ctx, "collection reloaded", zap.Stringer("state", st.State))
	return c.JSON(http.StatusOK, viewResponse(d.View(), d.Definition()))
}
