// Package session wraps the identity provider. It owns the current
// authenticated identity, persists the token set between runs, and notifies
// subscribers on every sign-in, refresh, and sign-out.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/visionhq/vision-desktop/internal/config"
	"github.com/visionhq/vision-desktop/internal/kv"
)

// Sentinel errors
var (
	// ErrNotSignedIn is returned when an operation needs an identity and
	// there is none.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrRefreshTokenMissing is returned when the token set needs a
	// refresh but carries no refresh token.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
)

const (
	// refreshWindow is how close to expiry a token may get before Token
	// refreshes it.
	refreshWindow = 60 * time.Second

	// defaultTokenTTL applies when the provider omits expires_in.
	defaultTokenTTL = time.Hour
)

// Identity is the opaque handle for the signed-in user.
type Identity struct {
	UID       string
	ExpiresAt time.Time
}

// tokenSet is the persisted shape of the provider tokens.
type tokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Session exposes the current identity and reacts to sign-in and sign-out.
type Session struct {
	store      *kv.Store
	oauth      *oauth2.Config
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	cur     *Identity
	tokens  *tokenSet
	subs    map[int]func(*Identity)
	nextSub int
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session backed by the given store and provider config. A
// previously persisted token set restores the identity immediately.
func New(store *kv.Store, oauthCfg config.OAuth, opts ...Option) *Session {
	s := &Session{
		store: store,
		oauth: &oauth2.Config{
			ClientID:    oauthCfg.ClientID,
			RedirectURL: oauthCfg.RedirectURI,
			Scopes:      oauthCfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  oauthCfg.AuthorizationEndpoint,
				TokenURL: oauthCfg.TokenEndpoint,
			},
		},
		httpClient: http.DefaultClient,
		now:        time.Now,
		subs:       make(map[int]func(*Identity)),
	}
	for _, opt := range opts {
		opt(s)
	}

	var ts tokenSet
	if store.Get(kv.KeyTokens, &ts) && ts.AccessToken != "" {
		if id := identityFromToken(ts.AccessToken, ts.ExpiresAt); id != nil {
			s.tokens = &ts
			s.cur = id
			log.Debug().Str("uid", id.UID).Msg("restored persisted session")
		}
	}

	return s
}

// Subscribe registers fn for identity-change notifications. It fires once
// immediately with the current state, then on every change. The returned
// function unsubscribes.
func (s *Session) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	cur := s.cur
	s.mu.Unlock()

	fn(cur)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Current returns the signed-in identity, or nil.
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Token returns a live bearer token for the current identity, refreshing it
// when it is within the refresh window of expiry.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	ts := s.tokens
	s.mu.Unlock()

	if ts == nil {
		return "", ErrNotSignedIn
	}

	now := s.now()
	if time.Unix(ts.ExpiresAt, 0).Sub(now) > refreshWindow {
		return ts.AccessToken, nil
	}

	if ts.RefreshToken == "" {
		return "", ErrRefreshTokenMissing
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: ts.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	refreshed := tokenSetFromProvider(tok, s.now())
	if refreshed.RefreshToken == "" {
		// Providers may omit the refresh token on rotation; keep the old one.
		refreshed.RefreshToken = ts.RefreshToken
	}

	s.commitTokens(refreshed)

	log.Debug().Time("expiresAt", time.Unix(refreshed.ExpiresAt, 0)).Msg("refreshed access token")

	return refreshed.AccessToken, nil
}

// SignOut destroys the identity: the persisted token set and the persisted
// authorization claim are deleted, not merely ignored, so nothing leaks into
// a subsequent different user's session.
func (s *Session) SignOut() {
	if err := s.store.Delete(kv.KeyTokens); err != nil {
		log.Warn().Err(err).Msg("failed to delete persisted tokens")
	}
	if err := s.store.Delete(kv.KeyAuthz); err != nil {
		log.Warn().Err(err).Msg("failed to delete persisted authz claim")
	}
	if err := s.store.Delete(kv.KeyOAuthPending); err != nil {
		log.Warn().Err(err).Msg("failed to delete pending login")
	}

	s.mu.Lock()
	s.cur = nil
	s.tokens = nil
	s.mu.Unlock()

	log.Info().Msg("signed out")

	s.notify()
}

// commitTokens persists the token set and updates the identity, notifying
// subscribers when the identity changed.
func (s *Session) commitTokens(ts *tokenSet) {
	if err := s.store.Put(kv.KeyTokens, ts); err != nil {
		log.Warn().Err(err).Msg("failed to persist tokens")
	}

	id := identityFromToken(ts.AccessToken, ts.ExpiresAt)

	s.mu.Lock()
	prev := s.cur
	s.tokens = ts
	s.cur = id
	s.mu.Unlock()

	if prev == nil || id == nil || prev.UID != id.UID {
		s.notify()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	cur := s.cur
	fns := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cur)
	}
}

// identityFromToken derives the stable user id from the access token's sub
// claim. The token is not verified here; verification is the backend's job
// and the uid is only used to key local caches.
func identityFromToken(accessToken string, expiresAt int64) *Identity {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		log.Warn().Err(err).Msg("access token is not a parseable JWT")
		return nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		log.Warn().Msg("access token has no subject claim")
		return nil
	}

	return &Identity{UID: sub, ExpiresAt: time.Unix(expiresAt, 0)}
}

func tokenSetFromProvider(tok *oauth2.Token, now time.Time) *tokenSet {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultTokenTTL)
	}
	return &tokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}
}
