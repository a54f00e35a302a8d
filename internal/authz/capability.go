package authz

import "strings"

// Set is the flat record of capabilities derived from a claim. Each field
// gates one view or action in the client.
type Set struct {
	CanAccessProjects bool `json:"canAccessProjects"`
	CanCreateProject  bool `json:"canCreateProject"`
	CanEditProject    bool `json:"canEditProject"`
	CanDeleteProject  bool `json:"canDeleteProject"`

	CanAccessNews bool `json:"canAccessNews"`
	CanCreateNews bool `json:"canCreateNews"`
	CanDeleteNews bool `json:"canDeleteNews"`

	CanAccessMedia bool `json:"canAccessMedia"`
	CanUploadMedia bool `json:"canUploadMedia"`
	CanDeleteMedia bool `json:"canDeleteMedia"`

	CanAccessCalendar bool `json:"canAccessCalendar"`
	CanManageCalendar bool `json:"canManageCalendar"`

	CanAccessMembers bool `json:"canAccessMembers"`
	CanBanMembers    bool `json:"canBanMembers"`
	CanWarnMembers   bool `json:"canWarnMembers"`

	CanAccessTickets      bool `json:"canAccessTickets"`
	CanManageRoles        bool `json:"canManageRoles"`
	CanAccessApplications bool `json:"canAccessApplications"`
	CanAccessAnalytics    bool `json:"canAccessAnalytics"`

	CanAccessAdmin  bool `json:"canAccessAdmin"`
	CanAccessEditor bool `json:"canAccessEditor"`
	IsModerator     bool `json:"isModerator"`
}

// Derive maps a claim to its capability set. It is pure: identical input
// always yields identical output, and it is cheap enough to recompute on
// every claim change.
func Derive(claim Claim) Set {
	if claim.HasRole(RoleAdmin) {
		return allCapabilities()
	}

	perms := claim.Permissions

	s := Set{
		CanAccessProjects: hasPrefix(perms, "projects."),
		CanCreateProject:  hasExact(perms, "projects.create"),
		CanEditProject:    hasExact(perms, "projects.edit"),
		CanDeleteProject:  hasExact(perms, "projects.delete"),

		CanAccessNews: hasPrefix(perms, "news."),
		CanCreateNews: hasExact(perms, "news.create"),
		CanDeleteNews: hasExact(perms, "news.delete"),

		CanAccessMedia: hasPrefix(perms, "media."),
		CanUploadMedia: hasExact(perms, "media.upload"),
		CanDeleteMedia: hasExact(perms, "media.delete"),

		CanAccessCalendar: hasPrefix(perms, "calendar."),
		CanManageCalendar: hasExact(perms, "calendar.manage"),

		CanAccessMembers: hasPrefix(perms, "members."),
		CanBanMembers:    hasExact(perms, "members.ban"),
		CanWarnMembers:   hasExact(perms, "members.warn"),

		CanAccessTickets:      hasPrefix(perms, "tickets."),
		CanManageRoles:        hasPrefix(perms, "roles."),
		CanAccessApplications: hasPrefix(perms, "applications."),
		CanAccessAnalytics:    hasPrefix(perms, "analytics."),

		IsModerator: claim.HasRole(RoleModerator),
	}

	// Derived capabilities are ORs over the base ones. The moderator role
	// widens member-management and the admin landing view without granting
	// the permission-based capabilities themselves.
	s.CanAccessEditor = s.CanAccessProjects || s.CanAccessMedia || s.CanAccessNews || s.CanAccessCalendar
	s.CanAccessAdmin = s.CanManageRoles || s.CanBanMembers || s.CanAccessApplications || s.IsModerator

	return s
}

func allCapabilities() Set {
	return Set{
		CanAccessProjects: true,
		CanCreateProject:  true,
		CanEditProject:    true,
		CanDeleteProject:  true,

		CanAccessNews: true,
		CanCreateNews: true,
		CanDeleteNews: true,

		CanAccessMedia: true,
		CanUploadMedia: true,
		CanDeleteMedia: true,

		CanAccessCalendar: true,
		CanManageCalendar: true,

		CanAccessMembers: true,
		CanBanMembers:    true,
		CanWarnMembers:   true,

		CanAccessTickets:      true,
		CanManageRoles:        true,
		CanAccessApplications: true,
		CanAccessAnalytics:    true,

		CanAccessAdmin:  true,
		CanAccessEditor: true,
		IsModerator:     true,
	}
}

func hasExact(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

func hasPrefix(perms []string, prefix string) bool {
	for _, p := range perms {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
