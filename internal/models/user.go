package models

import (
	"fmt"
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// ParsePresenceStatus validates a client supplied status.
func ParsePresenceStatus(s string) (PresenceStatus, error) {
	switch st := PresenceStatus(s); st {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

type UserProfile struct {
	UserID        string         `gorm:"primaryKey" json:"user_id"`
	Username      string         `gorm:"not null" json:"username"`
	Avatar        string         `json:"avatar,omitempty"`
	StatusMessage string         `json:"status_message"`
	Theme         string         `gorm:"default:'light'" json:"theme"`
	Status        PresenceStatus `gorm:"default:'offline'" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	LastActive    time.Time      `json:"last_active"`
}

// ProfilePatch carries the fields of a merge-patch update; nil fields are
// left untouched.
type ProfilePatch struct {
	Username      *string `json:"username"`
	Avatar        *string `json:"avatar"`
	StatusMessage *string `json:"status_message"`
	Theme         *string `json:"theme"`
}

// Apply merges the patch into p.
func (pp ProfilePatch) Apply(p *UserProfile) {
	if pp.Username != nil {
		p.Username = *pp.Username
	}
	if pp.Avatar != nil {
		p.Avatar = *pp.Avatar
	}
	if pp.StatusMessage != nil {
		p.StatusMessage = *pp.StatusMessage
	}
	if pp.Theme != nil {
		p.Theme = *pp.Theme
	}
}
