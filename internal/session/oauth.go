package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/visionhq/vision-desktop/internal/kv"
)

// Sentinel errors for the login flow.
var (
	ErrMissingCode    = errors.New("missing authorization code")
	ErrMissingState   = errors.New("missing state")
	ErrStateMismatch  = errors.New("state mismatch")
	ErrNoPendingLogin = errors.New("no pending login state")
	ErrPendingExpired = errors.New("pending login expired")
)

// pendingTTL bounds how long a prepared login stays redeemable.
const pendingTTL = 10 * time.Minute

// AuthorizationDeniedError reports that the provider rejected the login.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// LoginRequest is a prepared login: open AuthorizationURL in a browser and
// feed the resulting redirect back through HandleCallback.
type LoginRequest struct {
	State            string
	Verifier         string
	AuthorizationURL string
}

// pendingLogin is persisted so the callback can be redeemed even if the
// process restarted between preparing the login and the redirect arriving.
type pendingLogin struct {
	State     string `json:"state"`
	Verifier  string `json:"code_verifier"`
	CreatedAt int64  `json:"created_at"`
}

// PrepareLogin starts a PKCE authorization-code flow.
func (s *Session) PrepareLogin() (*LoginRequest, error) {
	state, err := randomURLSafe(32)
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	pending := pendingLogin{
		State:     state,
		Verifier:  verifier,
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.Put(kv.KeyOAuthPending, pending); err != nil {
		return nil, fmt.Errorf("failed to persist pending login: %w", err)
	}

	authURL := s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	log.Debug().Str("state", state).Msg("prepared login")

	return &LoginRequest{
		State:            state,
		Verifier:         verifier,
		AuthorizationURL: authURL,
	}, nil
}

// HandleCallback redeems the provider redirect, exchanging the code for a
// token set. The pending login is consumed whether or not the callback is
// valid, so a rejected redirect cannot be replayed.
func (s *Session) HandleCallback(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid redirect url: %w", err)
	}
	q := u.Query()

	if errCode := q.Get("error"); errCode != "" {
		s.clearPending()
		if q.Get("state") == "" {
			return ErrMissingState
		}
		return &AuthorizationDeniedError{Code: errCode, Description: q.Get("error_description")}
	}

	code := q.Get("code")
	if code == "" {
		s.clearPending()
		return ErrMissingCode
	}
	returnedState := q.Get("state")
	if returnedState == "" {
		s.clearPending()
		return ErrMissingState
	}

	var pending pendingLogin
	if !s.store.Get(kv.KeyOAuthPending, &pending) {
		return ErrNoPendingLogin
	}
	s.clearPending()

	if s.now().Unix()-pending.CreatedAt > int64(pendingTTL.Seconds()) {
		return ErrPendingExpired
	}

	if pending.State != returnedState {
		return ErrStateMismatch
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	ts := tokenSetFromProvider(tok, s.now())
	s.commitTokens(ts)

	log.Info().Msg("signed in")

	return nil
}

func (s *Session) clearPending() {
	if err := s.store.Delete(kv.KeyOAuthPending); err != nil {
		log.Warn().Err(err).Msg("failed to clear pending login")
	}
}

func randomURLSafe(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
