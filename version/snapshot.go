// Package version captures point-in-time views of projects and tickets and describes how they changed.
package version

import (
	"strconv"
	"strings"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/cyverse-de/ticket-tracker/model"
)

// DevelopersKey is the snapshot key holding the list of assigned developers.
const DevelopersKey = "developers"

// Snapshot is an ordered mapping from field name to the stringified value of that field.
type Snapshot struct {
	keys   []string
	values map[string]string
}

// Keys returns the snapshot keys in capture order.
func (s Snapshot) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Get returns the stringified value stored under key.
func (s Snapshot) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Len returns the number of keys in the snapshot.
func (s Snapshot) Len() int {
	return len(s.keys)
}

func (s *Snapshot) set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Field is a single tracked field of an entity kind.
type Field[T any] struct {
	Name  string
	Value func(*T) string
}

// Schema declares the tracked fields of one entity kind.
type Schema[T any] struct {
	Kind       string
	Version    int
	Fields     []Field[T]
	Developers func(*T) []model.UserRef
}

// Take captures the current state of entity. It never modifies the entity.
func (s Schema[T]) Take(entity *T) Snapshot {
	var snapshot Snapshot
	for _, field := range s.Fields {
		snapshot.set(field.Name, field.Value(entity))
	}
	var developers []model.UserRef
	if s.Developers != nil {
		developers = s.Developers(entity)
	}
	snapshot.set(DevelopersKey, FormatDevelopers(developers))
	return snapshot
}

// FormatDevelopers renders developer usernames in relationship order, e.g. ["alice", "bob"].
func FormatDevelopers(developers []model.UserRef) string {
	quoted := make([]string, len(developers))
	for i, developer := range developers {
		quoted[i] = strconv.Quote(developer.Username)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// ProjectSchema lists the tracked fields of a project.
var ProjectSchema = Schema[model.Project]{
	Kind:    "project",
	Version: 1,
	Fields: []Field[model.Project]{
		{"id", func(p *model.Project) string { return formatID(p.ID) }},
		{"date_created", func(p *model.Project) string { return common.FormatDateTime(p.DateCreated) }},
		{"author", func(p *model.Project) string { return formatID(p.Author) }},
		{"name", func(p *model.Project) string { return p.Name }},
		{"description", func(p *model.Project) string { return p.Description }},
		{"status", func(p *model.Project) string { return p.Status }},
		{"priority", func(p *model.Project) string { return p.Priority }},
		{"deadline", func(p *model.Project) string { return common.FormatDate(p.Deadline) }},
		{"file", func(p *model.Project) string { return p.File }},
		{"days_left", func(p *model.Project) string { return strconv.Itoa(p.DaysLeft) }},
		{"last_update", func(p *model.Project) string { return common.FormatLastUpdate(p.LastUpdate) }},
	},
	Developers: func(p *model.Project) []model.UserRef { return p.Developers },
}

// TicketSchema lists the tracked fields of a ticket.
var TicketSchema = Schema[model.Ticket]{
	Kind:    "ticket",
	Version: 1,
	Fields: []Field[model.Ticket]{
		{"id", func(t *model.Ticket) string { return formatID(t.ID) }},
		{"date_created", func(t *model.Ticket) string { return common.FormatDateTime(t.DateCreated) }},
		{"author", func(t *model.Ticket) string { return formatID(t.Author) }},
		{"name", func(t *model.Ticket) string { return t.Name }},
		{"description", func(t *model.Ticket) string { return t.Description }},
		{"status", func(t *model.Ticket) string { return t.Status }},
		{"type", func(t *model.Ticket) string { return t.Type }},
		{"file", func(t *model.Ticket) string { return t.File }},
		{"last_update", func(t *model.Ticket) string { return common.FormatLastUpdate(t.LastUpdate) }},
		{"project_id", func(t *model.Ticket) string { return formatID(t.ProjectID) }},
	},
	Developers: func(t *model.Ticket) []model.UserRef { return t.Developers },
}
