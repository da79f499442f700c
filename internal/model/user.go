package model

import "time"

// DefaultAvatarURL is served by the website service when a user never
// uploaded a profile picture.
const DefaultAvatarURL = "static/avatars/default.png"

// User mirrors the users table owned by the website service.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profile_picture"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// AvatarURL returns the profile picture with the website's default fallback.
func (u *User) AvatarURL() string {
	if u.ProfilePicture == "" {
		return DefaultAvatarURL
	}
	return u.ProfilePicture
}
