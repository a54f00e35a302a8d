package models

import "time"

// Project represents one entry in the project catalog. External projects
// are hosted elsewhere and carry a reference that resolves to their
// canonical title and cover during enrichment.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	External    bool      `json:"external,omitempty"`
	ExternalRef string    `json:"externalRef,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// NeedsResolve reports whether the project's display fields come from an
// external source that has not been resolved yet.
func (p Project) NeedsResolve() bool {
	return p.External && p.ExternalRef != ""
}
