// Package authz fetches, caches, and normalizes the authorization claim for
// the signed-in user, and derives the capability set that gates the UI.
package authz

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Role names with special meaning to the capability model.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// defaultClaimTTL applies when the backend omits expiresIn.
const defaultClaimTTL = 60 * time.Second

// Claim is the normalized roles+permissions payload for one identity at one
// point in time.
type Claim struct {
	UID         string    `json:"uid"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	FetchedAt   time.Time `json:"fetched_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HasRole reports whether the claim carries the named role.
func (c Claim) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Valid reports whether the claim may be used for uid at the given time. An
// expired or mismatched claim must never grant access.
func (c Claim) Valid(uid string, now time.Time) bool {
	return c.UID == uid && uid != "" && now.Before(c.ExpiresAt)
}

// EmptyClaim is the minimally-privileged claim for uid: no roles, no
// permissions, already expired.
func EmptyClaim(uid string, now time.Time) Claim {
	return Claim{UID: uid, FetchedAt: now, ExpiresAt: now}
}

// wireClaim tolerates the field-name variants the backend has shipped over
// time. All shape sniffing is confined to this adapter; the rest of the
// client only ever sees Claim.
type wireClaim struct {
	Roles        []string `json:"roles"`
	RolesAlt     []string `json:"Roles"`
	Permissions  []string `json:"permissions"`
	PermsAlt     []string `json:"perms"`
	ExpiresIn    *int64   `json:"expiresIn"`
	ExpiresInAlt *int64   `json:"expires_in"`
	TTL          *int64   `json:"ttl"`
}

// ParseClaim normalizes an authorization response body into a Claim for uid.
// Absent arrays are treated as empty; an absent TTL falls back to the
// default.
func ParseClaim(uid string, body []byte, now time.Time) (Claim, error) {
	var wire wireClaim
	if len(body) > 0 {
		if err := json.Unmarshal(body, &wire); err != nil {
			return Claim{}, fmt.Errorf("malformed authorization payload: %w", err)
		}
	}

	roles := firstNonNil(wire.Roles, wire.RolesAlt)
	perms := firstNonNil(wire.Permissions, wire.PermsAlt)

	ttl := defaultClaimTTL
	for _, v := range []*int64{wire.ExpiresIn, wire.ExpiresInAlt, wire.TTL} {
		if v != nil && *v > 0 {
			ttl = time.Duration(*v) * time.Second
			break
		}
	}

	return Claim{
		UID:         uid,
		Roles:       roles,
		Permissions: perms,
		FetchedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

func firstNonNil(candidates ...[]string) []string {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return []string{}
}
