package model

import "time"

// Chat mirrors the chats table owned by the website service. CreatorID is
// what grants the history-clearing privilege alongside the admin role.
type Chat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatorID int64     `json:"creator_id"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}
