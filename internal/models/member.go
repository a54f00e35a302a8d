package models

import "time"

// Member is one user of the community as seen by moderation views.
type Member struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	JoinedAt    time.Time `json:"joinedAt,omitzero"`
	Banned      bool      `json:"banned,omitempty"`
}
