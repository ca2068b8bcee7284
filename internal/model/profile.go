package model

import "time"

// PlayerProfile is the flat record collected by the registration dialog.
// Profiles are write-once: existence means the user completed registration
// and must not be re-prompted.
type PlayerProfile struct {
	UserID            UserID    `json:"user_id"`
	GamerTag          string    `json:"gamer_tag"`
	PrimaryPosition   string    `json:"primary_position"`
	SecondaryPosition string    `json:"secondary_position"`
	Availability      []string  `json:"availability"`
	FormerClub        string    `json:"former_club"`
	Competitions      []string  `json:"competitions"`
	Experience        string    `json:"experience"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"display_name"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	RegisteredAt      time.Time `json:"registered_at"`
}
