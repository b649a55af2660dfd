package chat

import "time"

// Session captures a transient anonymous citizen conversation.
type Session struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}
