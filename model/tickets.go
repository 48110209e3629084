package model

import "time"

// TicketTypes lists the accepted ticket types.
var TicketTypes = []string{"Feature", "Bug"}

// Ticket is a unit of work that belongs to a project.
type Ticket struct {
	ID          int64     `json:"id"`
	DateCreated time.Time `json:"date_created"`
	Author      int64     `json:"author"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Type        string    `json:"type"`
	Developers  []UserRef `json:"developers"`
	File        string    `json:"file"`
	LastUpdate  time.Time `json:"last_update"`
	ProjectID   int64     `json:"project_id"`
}
