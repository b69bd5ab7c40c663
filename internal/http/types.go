package http

import (
	"time"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status      string            `json:"status"` // "ok" or "degraded"
	Version     string            `json:"version,omitempty"`
	Collections map[string]string `json:"collections"`
	Reasons     []string          `json:"reasons,omitempty"`
}

// CollectionSummary describes one collection in GET /api/v1/collections.
type CollectionSummary struct {
	Kind     string `json:"kind"`
	Resource string `json:"resource"`
	Grouped  bool   `json:"grouped"`
	State    string `json:"state"`
	Entities int    `json:"entities"`
	Filter   string `json:"filter"`
}

// CollectionsResponse is the response body for GET /api/v1/collections.
type CollectionsResponse struct {
	Collections []CollectionSummary `json:"collections"`
}

// StatusResponse is the response body for GET /api/v1/collections/:kind/status.
type StatusResponse struct {
	Kind     string     `json:"kind"`
	State    string     `json:"state"`
	Message  string     `json:"message,omitempty"`
	Entities int        `json:"entities"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// ViewResponse is the full listing of a collection. Grouped collections fill
// Groups; every collection fills Entities.
type ViewResponse struct {
	Kind         string             `json:"kind"`
	Status       StatusResponse     `json:"status"`
	Filter       string             `json:"filter"`
	Grouped      bool               `json:"grouped"`
	Options      []directory.Option `json:"options"`
	Groups       []directory.Group  `json:"groups"`
	Entities     []directory.Entity `json:"entities"`
	Ungrouped    []directory.Entity `json:"ungrouped"`
	EmptyMessage string             `json:"empty_message,omitempty"`
}

// GroupsResponse is the response body for GET /api/v1/collections/:kind/groups.
type GroupsResponse struct {
	Kind   string            `json:"kind"`
	State  string            `json:"state"`
	Filter string            `json:"filter"`
	Groups []directory.Group `json:"groups"`
}

// EntitiesResponse is the response body for GET /api/v1/collections/:kind/entities.
type EntitiesResponse struct {
	Kind     string             `json:"kind"`
	State    string             `json:"state"`
	Filter   string             `json:"filter"`
	Entities []directory.Entity `json:"entities"`
}

// FilterRequest is the request body for PUT /api/v1/collections/:kind/filter.
// "all" selects every entity.
type FilterRequest struct {
	Filter *string `json:"filter"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
