package model

import "time"

// Status values shared by projects and tickets.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
	StatusCancelled  = "Cancelled"
)

// Statuses lists the accepted status values.
var Statuses = []string{StatusOpen, StatusInProgress, StatusDone, StatusCancelled}

// Priorities lists the accepted project priorities.
var Priorities = []string{"Critical", "High", "Medium", "Low"}

// Project is a tracked body of work with a set of assigned developers.
type Project struct {
	ID          int64     `json:"id"`
	DateCreated time.Time `json:"date_created"`
	Author      int64     `json:"author"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Deadline    time.Time `json:"deadline"`
	Developers  []UserRef `json:"developers"`
	File        string    `json:"file"`
	DaysLeft    int       `json:"days_left"`
	LastUpdate  time.Time `json:"last_update"`
}
