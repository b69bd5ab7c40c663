package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/directoryd/internal/config"
	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
	"github.com/fyrsmithlabs/directoryd/internal/services"
	"github.com/fyrsmithlabs/directoryd/internal/telemetry"
)

var testRecords = map[string][]directory.Record{
	"/members": {
		map[string]any{"_id": "m1", "name": "Ada", "role": []any{"trainee", "president"}},
		map[string]any{"_id": "m2", "name": "Lin", "role": "trainee"},
		map[string]any{"_id": "m3", "name": "Sam", "role": "iot"},
	},
	"/projects": {
		map[string]any{"_id": "p1", "title": "Glove", "tags": []any{"wearables", "ai"}},
		map[string]any{"_id": "p2", "title": "Rover", "tags": []any{"robotics"}},
		map[string]any{"_id": "p3", "title": "Band", "tags": []any{"wearables"}},
	},
}

type testEnv struct {
	server   *Server
	registry *services.Registry
	logger   *logging.TestLogger
}

// newTestEnv serves /members and /projects; /events always fails.
func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()

	fetcher := directory.FetcherFunc(func(_ context.Context, resource string) ([]directory.Record, error) {
		records, ok := testRecords[resource]
		if !ok {
			return nil, errors.New("upstream unavailable")
		}
		return records, nil
	})

	reg, err := services.NewRegistry(services.Options{Fetcher: fetcher})
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	for _, kind := range reg.Kinds() {
		d, err := reg.Get(kind)
		require.NoError(t, err)
		d.Mount(context.Background())
	}

	tl := logging.NewTestLogger()
	server, err := NewServer(reg, tl.Logger, &Config{Host: "127.0.0.1", Port: 9191, Version: "test"}, opts...)
	require.NoError(t, err)

	return &testEnv{server: server, registry: reg, logger: tl}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	reg, err := services.NewRegistry(services.Options{Fetcher: directory.FetcherFunc(
		func(context.Context, string) ([]directory.Record, error) { return nil, nil },
	)})
	require.NoError(t, err)
	defer reg.Close()

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(reg, logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9191", server.Addr())
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(reg, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when registry is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, map[string]string{
		"members":  "loaded",
		"events":   "failed",
		"projects": "loaded",
	}, resp.Collections)
}

type degraded struct{}

func (degraded) Health() telemetry.HealthStatus {
	return telemetry.HealthStatus{Degraded: true, Reasons: []string{"exporter unreachable"}}
}

func TestHandleHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, WithHealthChecker(degraded{}))

	resp := decode[HealthResponse](t, env.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, []string{"exporter unreachable"}, resp.Reasons)
}

func TestHandleListCollections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/collections", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CollectionsResponse](t, rec)
	require.Len(t, resp.Collections, 3)
	assert.Equal(t, CollectionSummary{
		Kind: "members", Resource: "/members", Grouped: true, State: "loaded", Entities: 3, Filter: "all",
	}, resp.Collections[0])
	assert.Equal(t, "failed", resp.Collections[1].State)
}

func TestHandleView_Grouped(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/collections/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ViewResponse](t, rec)
	assert.True(t, resp.Grouped)
	assert.Equal(t, "loaded", resp.Status.State)
	assert.NotNil(t, resp.Status.LoadedAt)
	assert.Equal(t, "all", resp.Filter)
	assert.Empty(t, resp.EmptyMessage)

	require.Len(t, resp.Groups, 3)
	assert.Equal(t, "president", resp.Groups[0].Category)
	assert.Equal(t, "President", resp.Groups[0].Label)
	assert.Equal(t, "iot", resp.Groups[1].Category)
	assert.Equal(t, "trainee", resp.Groups[2].Category)
	assert.NotNil(t, resp.Ungrouped)
	assert.Empty(t, resp.Ungrouped)

	values := make([]string, 0, len(resp.Options))
	for _, o := range resp.Options {
		values = append(values, o.Value)
	}
	assert.Equal(t, []string{"all", "president", "iot", "trainee"}, values)
}

func TestHandleView_FailedCollectionStillOK(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/collections/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ViewResponse](t, rec)
	assert.Equal(t, "failed", resp.Status.State)
	assert.Equal(t, "Failed to load events.", resp.Status.Message)
	assert.Empty(t, resp.Entities)
	assert.Empty(t, resp.Groups)
	assert.Empty(t, resp.EmptyMessage)
	assert.Nil(t, resp.Status.LoadedAt)
}

func TestHandleView_UnknownCollection(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/v1/collections/sponsors",
		"/api/v1/collections/sponsors/groups",
		"/api/v1/collections/sponsors/entities",
		"/api/v1/collections/sponsors/status",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "unknown collection")
	}
}

func TestHandleSetFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", FilterRequest{Filter: ptr("wearables")})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ViewResponse](t, rec)
	assert.Equal(t, "wearables", resp.Filter)
	ids := make([]string, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids)

	// the selection persists for later reads
	ents := decode[EntitiesResponse](t, env.do(t, http.MethodGet, "/api/v1/collections/projects/entities", nil))
	assert.Equal(t, "wearables", ents.Filter)
	assert.Len(t, ents.Entities, 2)
}

func TestHandleSetFilter_NoMatchesShowsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[ViewResponse](t, env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", FilterRequest{Filter: ptr("quantum")}))
	assert.Empty(t, resp.Entities)
	assert.Equal(t, "No projects found with the quantum tag. Try another filter.", resp.EmptyMessage)
}

func TestHandleSetFilter_All(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", FilterRequest{Filter: ptr("robotics")})
	resp := decode[ViewResponse](t, env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", FilterRequest{Filter: ptr("all")}))
	assert.Equal(t, "all", resp.Filter)
	assert.Len(t, resp.Entities, 3)
}

func TestHandleSetFilter_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing field", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "filter field is required")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/collections/projects/filter", strings.NewReader(`{"filter":`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGroups(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPut, "/api/v1/collections/members/filter", FilterRequest{Filter: ptr("trainee")})
	resp := decode[GroupsResponse](t, env.do(t, http.MethodGet, "/api/v1/collections/members/groups", nil))

	assert.Equal(t, "trainee", resp.Filter)
	require.Len(t, resp.Groups, 1)
	require.Len(t, resp.Groups[0].Entities, 1)
	assert.Equal(t, "m2", resp.Groups[0].Entities[0].ID)
}

func TestHandleGroups_FlatCollection(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[GroupsResponse](t, env.do(t, http.MethodGet, "/api/v1/collections/projects/groups", nil))
	cats := make([]string, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		cats = append(cats, g.Category)
	}
	assert.Equal(t, []string{"wearables", "robotics"}, cats)
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[StatusResponse](t, env.do(t, http.MethodGet, "/api/v1/collections/projects/status", nil))
	assert.Equal(t, "projects", resp.Kind)
	assert.Equal(t, "loaded", resp.State)
	assert.Equal(t, 3, resp.Entities)
	assert.Empty(t, resp.Message)
}

func TestHandleReload_ResetsFilter(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPut, "/api/v1/collections/projects/filter", FilterRequest{Filter: ptr("robotics")})
	rec := env.do(t, http.MethodPost, "/api/v1/collections/projects/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ViewResponse](t, rec)
	assert.Equal(t, "all", resp.Filter)
	assert.Equal(t, "loaded", resp.Status.State)
	assert.Len(t, resp.Entities, 3)
	env.logger.AssertLogged(t, zapcore.InfoLevel, "collection reloaded")
}

func TestHandleReload_FailureStaysFailed(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[ViewResponse](t, env.do(t, http.MethodPost, "/api/v1/collections/events/reload", nil))
	assert.Equal(t, "failed", resp.Status.State)
	assert.Equal(t, "Failed to load events.", resp.Status.Message)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "directory_loads_total")
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID header and logs it", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/health", nil)
		id := rec.Header().Get(echo.HeaderXRequestID)
		require.NotEmpty(t, id)

		entries := env.logger.FilterMessage("http request").All()
		require.NotEmpty(t, entries)
		assert.Equal(t, id, entries[len(entries)-1].ContextMap()["request.id"])
	})

	t.Run("logs final status of errors", func(t *testing.T) {
		env := newTestEnv(t)

		env.do(t, http.MethodGet, "/api/v1/collections/sponsors", nil)
		env.logger.AssertField(t, "http request", "status", int64(http.StatusNotFound))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		env := newTestEnv(t)
		env.server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		var rec *httptest.ResponseRecorder
		assert.NotPanics(t, func() {
			rec = env.do(t, http.MethodGet, "/panic", nil)
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServerStartShutdown(t *testing.T) {
	reg, err := services.NewRegistry(services.Options{
		Collections: map[string]config.CollectionConfig{
			"members":  {Disabled: true},
			"events":   {Disabled: true},
			"projects": {Disabled: true},
		},
	})
	require.NoError(t, err)
	defer reg.Close()

	server, err := NewServer(reg, logging.NewNop(), &Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	require.Eventually(t, func() bool {
		return server.echo.ListenerAddr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + server.echo.ListenerAddr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

func ptr(s string) *string { return &s }
