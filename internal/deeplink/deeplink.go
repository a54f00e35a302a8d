// Package deeplink parses vision:// URLs into OAuth callbacks and in-app
// navigation targets.
package deeplink

import (
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	// Scheme is the custom URL scheme registered for the application.
	Scheme = "vision"

	callbackHost = "auth"
	callbackPath = "/callback"
)

// routes lists the navigation targets reachable from outside the app.
// Anything else is dropped.
var routes = map[string]struct{}{
	"home":           {},
	"projects":       {},
	"news":           {},
	"explore":        {},
	"media":          {},
	"settings":       {},
	"settings-debug": {},
	"profile":        {},
	"editor":         {},
	"analytics":      {},
	"calendar":       {},
	"admin":          {},
	"roles":          {},
	"members":        {},
}

// IsCallback reports whether u is the OAuth redirect target
// (vision://auth/callback).
func IsCallback(u *url.URL) bool {
	return u.Scheme == Scheme && u.Host == callbackHost && u.Path == callbackPath
}

// ExtractRoute returns the navigation route named by u, or "" when the URL
// is not a recognised route. Both vision://projects and vision:///projects
// forms are accepted.
func ExtractRoute(u *url.URL) string {
	if u.Scheme != Scheme {
		return ""
	}

	route := u.Host
	if route == "" || route == callbackHost {
		route = strings.Trim(u.Path, "/")
	}

	if _, ok := routes[route]; !ok {
		return ""
	}

	return route
}

// Handler dispatches incoming URLs and latches the most recent navigation
// route so a UI that mounts after the URL arrived can still pick it up.
type Handler struct {
	onCallback func(*url.URL)
	onNavigate func(string)

	mu        sync.Mutex
	lastRoute string
}

// NewHandler creates a Handler. Either callback may be nil.
func NewHandler(onCallback func(*url.URL), onNavigate func(string)) *Handler {
	return &Handler{
		onCallback: onCallback,
		onNavigate: onNavigate,
	}
}

// Handle routes a single parsed URL.
func (h *Handler) Handle(u *url.URL) {
	if IsCallback(u) {
		log.Debug().Msg("deeplink: oauth callback")
		if h.onCallback != nil {
			h.onCallback(u)
		}
		return
	}

	route := ExtractRoute(u)
	if route == "" {
		log.Debug().Str("url", u.Redacted()).Msg("deeplink: ignoring unrecognised url")
		return
	}

	h.mu.Lock()
	h.lastRoute = route
	h.mu.Unlock()

	log.Debug().Str("route", route).Msg("deeplink: navigate")
	if h.onNavigate != nil {
		h.onNavigate(route)
	}
}

// HandleArgs scans process arguments for vision: URLs. On some platforms a
// second launch forwards the deeplink as a CLI argument to the running
// instance.
func (h *Handler) HandleArgs(args []string) {
	for _, raw := range args {
		candidate := strings.TrimSpace(strings.Trim(raw, `"`))
		if !strings.HasPrefix(candidate, Scheme+":") {
			continue
		}

		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}

		h.Handle(u)
	}
}

// CurrentRoute returns the most recent navigation route, or "" when none
// has arrived yet.
func (h *Handler) CurrentRoute() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRoute
}
