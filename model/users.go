package model

import "time"

// Default values assigned to newly registered users.
const (
	DefaultDepartment  = "no department"
	DefaultDescription = "no description filled in"
	DefaultAvatar      = "/static/img/avatar-default.png"
)

// UserRef is a lightweight reference to a user. Two refs denote the same user when their IDs match.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// User represents a registered user of the tracker.
type User struct {
	ID                       int64      `json:"id"`
	Email                    string     `json:"email"`
	Username                 string     `json:"username"`
	Department               string     `json:"department"`
	Description              string     `json:"description"`
	Avatar                   string     `json:"avatar"`
	DateCreated              time.Time  `json:"date_created"`
	PrivateProfile           bool       `json:"private_profile"`
	LastMessageReadTime      *time.Time `json:"last_message_read_time,omitempty"`
	LastNotificationReadTime *time.Time `json:"last_notification_read_time,omitempty"`
}

// Ref returns a reference to the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// Usernames returns the usernames of the referenced users in order.
func Usernames(refs []UserRef) []string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Username
	}
	return names
}

// UserIDs returns the IDs of the referenced users in order.
func UserIDs(refs []UserRef) []int64 {
	ids := make([]int64, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids
}
