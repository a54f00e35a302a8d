package authz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/session"
	"github.com/visionhq/vision-desktop/internal/transport"
)

// TokenSource supplies a live bearer token for the current identity.
// *session.Session satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// State is the resolver's output at one point in time.
type State struct {
	Claim Claim
	Caps  Set

	// Provisional is set while the state is painted from the claim cache
	// ahead of the live fetch.
	Provisional bool

	// Resolved is false only while the very first resolution for the
	// current identity is still in flight with no cache to seed from.
	// Gating logic treats unresolved as loading, never as denial.
	Resolved bool

	// Err carries the last authorization-fetch failure. The app stays
	// usable in a minimally-privileged state; this is banner material,
	// not a crash.
	Err error
}

// Resolver produces the authoritative claim for the current identity. The
// claim cache seeds a provisional first paint; the fetch that follows is
// always the final authority. A result is committed only if the identity it
// was fetched for is still current.
type Resolver struct {
	client   *transport.Client
	cache    *ClaimCache
	tokens   TokenSource
	authzURL string
	retry    transport.RetryPolicy
	now      func() time.Time

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	state   State
	subs    map[int]func(State)
	nextSub int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryPolicy overrides the fetch retry policy.
func WithRetryPolicy(p transport.RetryPolicy) ResolverOption {
	return func(r *Resolver) { r.retry = p }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver fetching claims from serverURL.
func NewResolver(client *transport.Client, cache *ClaimCache, tokens TokenSource, serverURL string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:   client,
		cache:    cache,
		tokens:   tokens,
		authzURL: serverURL + "/me/authz",
		retry:    transport.DefaultRetryPolicy(),
		now:      time.Now,
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state = State{Claim: EmptyClaim("", r.now())}
	return r
}

// SetIdentity reacts to an identity change. An empty uid (signed out)
// resets synchronously with no network call; otherwise the state is seeded
// from the cache when possible and a fresh fetch is started. Any in-flight
// fetch for a previous identity is cancelled and its result discarded.
func (r *Resolver) SetIdentity(uid string) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if uid == "" {
		r.state = State{Claim: EmptyClaim("", r.now()), Resolved: true}
		r.mu.Unlock()
		r.cache.Clear()
		r.notify()
		return
	}

	st := State{Claim: EmptyClaim(uid, r.now())}
	if cached := r.cache.Load(uid); cached != nil {
		st = State{Claim: *cached, Caps: Derive(*cached), Provisional: true, Resolved: true}
		log.Debug().Str("uid", uid).Msg("seeded provisional capabilities from cache")
	}
	r.state = st

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	r.notify()

	go r.refresh(ctx, gen, uid)
}

// IdentitySource notifies of identity changes, firing once immediately with
// the current identity. *session.Session satisfies it.
type IdentitySource interface {
	Subscribe(fn func(*session.Identity)) func()
}

// Bind follows an identity source: each sign-in starts a resolution for the
// new uid, and sign-out resets capabilities synchronously. The returned
// function unbinds.
func (r *Resolver) Bind(src IdentitySource) func() {
	return src.Subscribe(func(id *session.Identity) {
		if id == nil {
			r.SetIdentity("")
			return
		}
		r.SetIdentity(id.UID)
	})
}

// State returns the current resolver output.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnChange registers fn for state notifications. It fires once immediately
// with the current state, then on every commit. The returned function
// unsubscribes.
func (r *Resolver) OnChange(fn func(State)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	cur := r.state
	r.mu.Unlock()

	fn(cur)

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Resolver) refresh(ctx context.Context, gen uint64, uid string) {
	claim, err := r.fetch(ctx, uid)
	if err != nil {
		if transport.IsAborted(err) {
			// Superseded or torn down; nothing to surface.
			return
		}

		log.Warn().Err(err).Str("uid", uid).Msg("authorization fetch failed, dropping to minimal privileges")

		// Zero-trust on refresh failure: a previously cached claim, valid
		// or not, does not stand in for a failed fetch.
		r.commit(gen, State{Claim: EmptyClaim(uid, r.now()), Resolved: true, Err: err}, false)
		return
	}

	r.commit(gen, State{Claim: claim, Caps: Derive(claim), Resolved: true}, true)
}

func (r *Resolver) fetch(ctx context.Context, uid string) (Claim, error) {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return Claim{}, fmt.Errorf("failed to get bearer token: %w", err)
	}

	resp, err := r.client.DoRetry(ctx, transport.Request{
		URL:    r.authzURL,
		Header: map[string]string{"Authorization": "Bearer " + token},
	}, r.retry)
	if err != nil {
		return Claim{}, err
	}

	return ParseClaim(uid, resp.Body, r.now())
}

func (r *Resolver) commit(gen uint64, st State, persist bool) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		log.Debug().Str("uid", st.Claim.UID).Msg("discarding superseded authorization result")
		return
	}
	r.state = st
	// Persist inside the guard so a result superseded by a concurrent
	// identity change can never reach the cache.
	if persist {
		r.cache.Save(st.Claim)
	}
	r.mu.Unlock()

	r.notify()
}

func (r *Resolver) notify() {
	r.mu.Lock()
	cur := r.state
	fns := make([]func(State), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(cur)
	}
}
