package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionhq/vision-desktop/internal/config"
	"github.com/visionhq/vision-desktop/internal/kv"
)

func mintToken(t *testing.T, uid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"iss": "vision-id",
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// tokenEndpoint serves OAuth token responses and records the form values of
// the last request.
type tokenEndpoint struct {
	t        *testing.T
	uid      string
	lastForm url.Values
	fail     bool
}

func (te *tokenEndpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(te.t, r.ParseForm())
		te.lastForm = r.PostForm
		if te.fail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  mintToken(te.t, te.uid),
			"refresh_token": "refresh-" + te.uid,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}
}

func newTestSession(t *testing.T, te *tokenEndpoint, opts ...Option) (*Session, *kv.Store) {
	t.Helper()

	srv := httptest.NewServer(te.handler())
	t.Cleanup(srv.Close)

	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)

	cfg := config.OAuth{
		ClientID:              "desktop",
		AuthorizationEndpoint: srv.URL + "/authorize",
		TokenEndpoint:         srv.URL + "/token",
		RedirectURI:           "vision://auth/callback",
		Scopes:                []string{"openid"},
	}

	return New(store, cfg, opts...), store
}

// signIn drives a full prepare/callback round trip.
func signIn(t *testing.T, s *Session) {
	t.Helper()
	req, err := s.PrepareLogin()
	require.NoError(t, err)
	callback := fmt.Sprintf("vision://auth/callback?code=abc&state=%s", req.State)
	require.NoError(t, s.HandleCallback(context.Background(), callback))
}

func TestSession_Subscribe(t *testing.T) {
	t.Run("fires immediately with current state", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		var got []*Identity
		s.Subscribe(func(id *Identity) { got = append(got, id) })

		require.Len(t, got, 1)
		assert.Nil(t, got[0])
	})

	t.Run("fires on sign-in and sign-out", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		var got []*Identity
		s.Subscribe(func(id *Identity) { got = append(got, id) })

		signIn(t, s)
		s.SignOut()

		require.Len(t, got, 3)
		assert.Nil(t, got[0])
		require.NotNil(t, got[1])
		assert.Equal(t, "u1", got[1].UID)
		assert.Nil(t, got[2])
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		var count int
		unsub := s.Subscribe(func(*Identity) { count++ })
		unsub()

		signIn(t, s)
		assert.Equal(t, 1, count)
	})
}

func TestSession_LoginFlow(t *testing.T) {
	t.Run("happy path exchanges code with PKCE verifier", func(t *testing.T) {
		te := &tokenEndpoint{t: t, uid: "u1"}
		s, _ := newTestSession(t, te)

		req, err := s.PrepareLogin()
		require.NoError(t, err)
		assert.Contains(t, req.AuthorizationURL, "code_challenge=")
		assert.Contains(t, req.AuthorizationURL, "code_challenge_method=S256")

		callback := fmt.Sprintf("vision://auth/callback?code=abc&state=%s", req.State)
		require.NoError(t, s.HandleCallback(context.Background(), callback))

		assert.Equal(t, "abc", te.lastForm.Get("code"))
		assert.Equal(t, req.Verifier, te.lastForm.Get("code_verifier"))

		id := s.Current()
		require.NotNil(t, id)
		assert.Equal(t, "u1", id.UID)
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		_, err := s.PrepareLogin()
		require.NoError(t, err)

		err = s.HandleCallback(context.Background(), "vision://auth/callback?code=abc&state=wrong")
		assert.ErrorIs(t, err, ErrStateMismatch)
		assert.Nil(t, s.Current())
	})

	t.Run("missing code is rejected", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		req, err := s.PrepareLogin()
		require.NoError(t, err)

		err = s.HandleCallback(context.Background(), "vision://auth/callback?state="+req.State)
		assert.ErrorIs(t, err, ErrMissingCode)
	})

	t.Run("provider error surfaces as denial", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		req, err := s.PrepareLogin()
		require.NoError(t, err)

		err = s.HandleCallback(context.Background(),
			"vision://auth/callback?error=access_denied&error_description=user+cancelled&state="+req.State)
		require.Error(t, err)

		var denied *AuthorizationDeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "access_denied", denied.Code)
		assert.Equal(t, "user cancelled", denied.Description)
	})

	t.Run("callback without pending login is rejected", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		err := s.HandleCallback(context.Background(), "vision://auth/callback?code=abc&state=x")
		assert.ErrorIs(t, err, ErrNoPendingLogin)
	})

	t.Run("expired pending login is rejected", func(t *testing.T) {
		now := time.Now()
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"}, WithClock(func() time.Time { return now }))

		req, err := s.PrepareLogin()
		require.NoError(t, err)

		now = now.Add(11 * time.Minute)
		err = s.HandleCallback(context.Background(), fmt.Sprintf("vision://auth/callback?code=abc&state=%s", req.State))
		assert.ErrorIs(t, err, ErrPendingExpired)
	})

	t.Run("callback cannot be replayed", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		req, err := s.PrepareLogin()
		require.NoError(t, err)
		callback := fmt.Sprintf("vision://auth/callback?code=abc&state=%s", req.State)
		require.NoError(t, s.HandleCallback(context.Background(), callback))

		err = s.HandleCallback(context.Background(), callback)
		assert.ErrorIs(t, err, ErrNoPendingLogin)
	})
}

func TestSession_Token(t *testing.T) {
	t.Run("not signed in", func(t *testing.T) {
		s, _ := newTestSession(t, &tokenEndpoint{t: t, uid: "u1"})

		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, ErrNotSignedIn)
	})

	t.Run("returns current token when far from expiry", func(t *testing.T) {
		te := &tokenEndpoint{t: t, uid: "u1"}
		s, _ := newTestSession(t, te)
		signIn(t, s)
		exchanges := te.lastForm

		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, tok)
		// No refresh call happened.
		assert.Equal(t, exchanges, te.lastForm)
	})

	t.Run("refreshes within the refresh window", func(t *testing.T) {
		now := time.Now()
		te := &tokenEndpoint{t: t, uid: "u1"}
		s, _ := newTestSession(t, te, WithClock(func() time.Time { return now }))
		signIn(t, s)

		now = now.Add(time.Hour - 30*time.Second)

		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, tok)
		assert.Equal(t, "refresh_token", te.lastForm.Get("grant_type"))
		assert.Equal(t, "refresh-u1", te.lastForm.Get("refresh_token"))
	})

	t.Run("refresh failure surfaces", func(t *testing.T) {
		now := time.Now()
		te := &tokenEndpoint{t: t, uid: "u1"}
		s, _ := newTestSession(t, te, WithClock(func() time.Time { return now }))
		signIn(t, s)

		te.fail = true
		now = now.Add(2 * time.Hour)

		_, err := s.Token(context.Background())
		assert.Error(t, err)
	})
}

func TestSession_Persistence(t *testing.T) {
	t.Run("identity restored from persisted tokens", func(t *testing.T) {
		te := &tokenEndpoint{t: t, uid: "u7"}
		s, store := newTestSession(t, te)
		signIn(t, s)

		restored := New(store, config.OAuth{ClientID: "desktop"})
		id := restored.Current()
		require.NotNil(t, id)
		assert.Equal(t, "u7", id.UID)
	})

	t.Run("sign-out deletes persisted state", func(t *testing.T) {
		te := &tokenEndpoint{t: t, uid: "u7"}
		s, store := newTestSession(t, te)
		signIn(t, s)

		s.SignOut()

		var raw map[string]any
		assert.False(t, store.Get(kv.KeyTokens, &raw))
		assert.False(t, store.Get(kv.KeyAuthz, &raw))

		restored := New(store, config.OAuth{ClientID: "desktop"})
		assert.Nil(t, restored.Current())
	})
}
