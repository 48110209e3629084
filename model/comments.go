package model

import "time"

// Comment is a remark attached to either a project or a ticket. Exactly one of ProjectID and TicketID is set.
type Comment struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	DateCreated time.Time `json:"date_created"`
	AuthorID    int64     `json:"author_id"`
	ProjectID   *int64    `json:"project_id,omitempty"`
	TicketID    *int64    `json:"ticket_id,omitempty"`
	File        string    `json:"file"`
	Deleted     bool      `json:"deleted"`
}

// Like records that a user liked a comment.
type Like struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	CommentID   int64     `json:"comment_id"`
	DateCreated time.Time `json:"date_created"`
}
