package models

import "time"

// Team groups users that plan meals and shop together
type Team struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:50;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account. A user without a team can browse dishes but cannot plan meals.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	TeamID       *uint     `json:"team_id" gorm:"index"`
	Team         *Team     `json:"team,omitempty"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// SameTeam reports whether both users belong to the same (non-nil) team.
func (u *User) SameTeam(teamID *uint) bool {
	return u.TeamID != nil && teamID != nil && *u.TeamID == *teamID
}
