package authz

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/kv"
)

// ClaimCache persists the last-known claim so the UI can paint with a
// provisional capability set while the live fetch runs. It is a latency
// optimization only; the network response is always the final authority.
type ClaimCache struct {
	store *kv.Store
	now   func() time.Time
}

// NewClaimCache creates a cache over the kv store.
func NewClaimCache(store *kv.Store) *ClaimCache {
	return &ClaimCache{store: store, now: time.Now}
}

// Load returns the persisted claim when it belongs to uid and has not
// expired. Anything else (absent, corrupt, mismatched, expired) is nil.
func (c *ClaimCache) Load(uid string) *Claim {
	var claim Claim
	if !c.store.Get(kv.KeyAuthz, &claim) {
		return nil
	}

	if !claim.Valid(uid, c.now()) {
		log.Debug().Str("uid", uid).Msg("ignoring stale or mismatched claim cache")
		return nil
	}

	return &claim
}

// Save overwrites the persisted claim.
func (c *ClaimCache) Save(claim Claim) {
	if err := c.store.Put(kv.KeyAuthz, claim); err != nil {
		log.Warn().Err(err).Msg("failed to persist authz claim")
	}
}

// Clear deletes the persisted claim.
func (c *ClaimCache) Clear() {
	if err := c.store.Delete(kv.KeyAuthz); err != nil {
		log.Warn().Err(err).Msg("failed to clear authz claim")
	}
}
