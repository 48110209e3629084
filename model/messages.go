package model

import "time"

// Message is a direct message from one user to another.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
}
