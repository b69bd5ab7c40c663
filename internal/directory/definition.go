package directory

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind names a collection type.
type Kind string

// Collection kinds served by directoryd.
const (
	KindMembers  Kind = "members"
	KindEvents   Kind = "events"
	KindProjects Kind = "projects"
)

// Messages holds the fixed user-facing texts of a collection.
type Messages struct {
	// LoadFailed is shown while the loader is Failed.
	LoadFailed string

	// EmptyAll is shown when the "all" filter matches nothing.
	EmptyAll string

	// EmptyFiltered is shown when a category filter matches nothing.
	// A single %s is replaced with the category's display label.
	EmptyFiltered string
}

// Definition describes how one collection kind is fetched, normalized,
// ranked and presented.
type Definition struct {
	Kind Kind

	// Resource is the path passed to the fetcher, e.g. "/members".
	Resource string

	// IDFields are the record keys tried, in order, for the identity.
	IDFields []string

	// CategoryField is the record key holding the label or labels.
	CategoryField string

	// Grouped collections render as groups; the rest render flat.
	Grouped bool

	Priority PriorityList

	// Labels maps a category to its display title.
	Labels map[string]string

	// SeedOnly collections never fetch; an empty seed loads as empty.
	SeedOnly bool

	Messages Messages
}

var kindPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Definition validation errors.
var (
	ErrKindEmpty        = errors.New("collection kind must not be empty")
	ErrKindInvalid      = errors.New("collection kind may only contain a-z, 0-9, '-' and '_'")
	ErrResourceInvalid  = errors.New("resource must start with '/'")
	ErrCategoryFieldSet = errors.New("category field must not be empty")
	ErrMessagesMissing  = errors.New("collection messages must not be empty")
)

// Validate checks that the definition is usable.
func (d Definition) Validate() error {
	if d.Kind == "" {
		return ErrKindEmpty
	}
	if !kindPattern.MatchString(string(d.Kind)) {
		return fmt.Errorf("%q: %w", d.Kind, ErrKindInvalid)
	}
	if !strings.HasPrefix(d.Resource, "/") {
		return fmt.Errorf("%s: %w", d.Kind, ErrResourceInvalid)
	}
	if d.CategoryField == "" {
		return fmt.Errorf("%s: %w", d.Kind, ErrCategoryFieldSet)
	}
	if d.Messages.LoadFailed == "" || d.Messages.EmptyAll == "" || d.Messages.EmptyFiltered == "" {
		return fmt.Errorf("%s: %w", d.Kind, ErrMessagesMissing)
	}
	return nil
}

// Label returns the display title for category, or category itself.
func (d Definition) Label(category string) string {
	if l, ok := d.Labels[category]; ok && l != "" {
		return l
	}
	return category
}

// EmptyMessage returns the text shown when filter leaves nothing visible.
func (d Definition) EmptyMessage(filter Filter) string {
	if filter.IsAll() {
		return d.Messages.EmptyAll
	}
	if strings.Contains(d.Messages.EmptyFiltered, "%s") {
		return fmt.Sprintf(d.Messages.EmptyFiltered, d.Label(filter.Label()))
	}
	return d.Messages.EmptyFiltered
}

// memberRoles is the precedence of member roles, highest first.
var memberRoles = []string{
	"faculty coordinator",
	"student mentor",
	"president",
	"co head",
	"iot",
	"aiot",
	"iort",
	"iiot",
	"team lead",
	"project lead",
	"core member",
	"trainee",
	"web/app dev",
	"marketing team",
}

var memberRoleLabels = map[string]string{
	"faculty coordinator": "Faculty Coordinators",
	"student mentor":      "Student Mentors",
	"president":           "President",
	"co head":             "Co-Heads",
	"iot":                 "IoT Team",
	"aiot":                "AIoT Team",
	"iort":                "IoRT Team",
	"iiot":                "IIoT Team",
	"team lead":           "Team Leads",
	"project lead":        "Project Leads",
	"core member":         "Core Members",
	"trainee":             "Trainees",
	"web/app dev":         "Web/App Development",
	"marketing team":      "Marketing Team",
}

var eventTypes = []string{"upcoming", "past", "workshop", "competition"}

// Builtin returns the stock definition for kind.
func Builtin(kind Kind) (Definition, bool) {
	switch kind {
	case KindMembers:
		return Definition{
			Kind:          KindMembers,
			Resource:      "/members",
			IDFields:      []string{"_id", "id"},
			CategoryField: "role",
			Grouped:       true,
			Priority:      NewPriorityList(memberRoles...),
			Labels:        copyLabels(memberRoleLabels),
			Messages: Messages{
				LoadFailed:    "Failed to load team members.",
				EmptyAll:      "No team members to show yet.",
				EmptyFiltered: "No members in %s yet.",
			},
		}, true
	case KindEvents:
		return Definition{
			Kind:          KindEvents,
			Resource:      "/events",
			IDFields:      []string{"id", "_id"},
			CategoryField: "type",
			Priority:      NewPriorityList(eventTypes...),
			Messages: Messages{
				LoadFailed:    "Failed to load events.",
				EmptyAll:      "Check back soon for upcoming events!",
				EmptyFiltered: "No %s events scheduled yet.",
			},
		}, true
	case KindProjects:
		return Definition{
			Kind:          KindProjects,
			Resource:      "/projects",
			IDFields:      []string{"_id", "id"},
			CategoryField: "tags",
			Messages: Messages{
				LoadFailed:    "Failed to load projects.",
				EmptyAll:      "We're currently working on new projects. Check back soon!",
				EmptyFiltered: "No projects found with the %s tag. Try another filter.",
			},
		}, true
	default:
		return Definition{}, false
	}
}

// Kinds lists the built-in collection kinds in display order.
func Kinds() []Kind {
	return []Kind{KindMembers, KindEvents, KindProjects}
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
