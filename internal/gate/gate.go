// Package gate decides whether a navigation target is currently permitted
// and manages the denial-redirect countdown.
package gate

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/authz"
)

// Decision is the gate's answer for one navigation.
type Decision int

const (
	// Loading means authorization has not resolved yet; it must never be
	// presented as a denial.
	Loading Decision = iota
	Allowed
	Denied
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Page identifies a navigation target.
type Page string

const (
	PageHome          Page = "home"
	PageExplore       Page = "explore"
	PageSettings      Page = "settings"
	PageDebugSettings Page = "settings-debug"
	PageProfile       Page = "profile"
	PageProjects      Page = "projects"
	PageNews          Page = "news"
	PageMedia         Page = "media"
	PageCalendar      Page = "calendar"
	PageEditor        Page = "editor"
	PageAnalytics     Page = "analytics"
	PageAdmin         Page = "admin"
	PageRoles         Page = "roles"
	PageMembers       Page = "members"
	PageTickets       Page = "tickets"
	PageApplications  Page = "applications"
)

// alwaysAllowed pages are reachable regardless of capabilities.
var alwaysAllowed = map[Page]bool{
	PageHome:          true,
	PageExplore:       true,
	PageSettings:      true,
	PageDebugSettings: true,
	PageProfile:       true,
}

// requirements maps each gated page to its capability check. Member
// management and the admin landing view carry the moderator OR-path.
var requirements = map[Page]func(authz.Set) bool{
	PageProjects:     func(s authz.Set) bool { return s.CanAccessProjects },
	PageNews:         func(s authz.Set) bool { return s.CanAccessNews },
	PageMedia:        func(s authz.Set) bool { return s.CanAccessMedia },
	PageCalendar:     func(s authz.Set) bool { return s.CanAccessCalendar },
	PageEditor:       func(s authz.Set) bool { return s.CanAccessEditor },
	PageAnalytics:    func(s authz.Set) bool { return s.CanAccessAnalytics },
	PageAdmin:        func(s authz.Set) bool { return s.CanAccessAdmin || s.IsModerator },
	PageRoles:        func(s authz.Set) bool { return s.CanManageRoles },
	PageMembers:      func(s authz.Set) bool { return s.CanAccessMembers || s.IsModerator },
	PageTickets:      func(s authz.Set) bool { return s.CanAccessTickets },
	PageApplications: func(s authz.Set) bool { return s.CanAccessApplications },
}

// Evaluate is the pure allow/deny decision for page under st.
func Evaluate(page Page, st authz.State) Decision {
	if alwaysAllowed[page] {
		return Allowed
	}

	if !st.Resolved {
		return Loading
	}

	required, known := requirements[page]
	if !known {
		// Unknown pages fail closed.
		return Denied
	}

	if required(st.Caps) {
		return Allowed
	}
	return Denied
}

// DeniedCountdown is how long a denied view is shown before the forced
// redirect home.
const DeniedCountdown = 4 * time.Second

// Gate tracks the current navigation and runs the denial countdown. The
// countdown is cancelled whenever the page or the authorization state
// changes before it fires, so a stale timer can never redirect away from a
// page that has since become permitted.
type Gate struct {
	redirect  func(Page)
	countdown time.Duration

	mu       sync.Mutex
	page     Page
	state    authz.State
	decision Decision
	timer    *time.Timer
	gen      uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithCountdown overrides the denial countdown, for tests.
func WithCountdown(d time.Duration) Option {
	return func(g *Gate) { g.countdown = d }
}

// New creates a gate that calls redirect when a denial countdown expires.
func New(redirect func(Page), opts ...Option) *Gate {
	g := &Gate{
		redirect:  redirect,
		countdown: DeniedCountdown,
		page:      PageHome,
		decision:  Allowed,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Navigate evaluates a new target page.
func (g *Gate) Navigate(page Page, st authz.State) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.page = page
	g.state = st
	return g.apply()
}

// Update re-evaluates the current page against a new authorization state.
func (g *Gate) Update(st authz.State) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = st
	return g.apply()
}

// Decision returns the current decision.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// apply recomputes the decision and manages the countdown. Callers hold the
// lock.
func (g *Gate) apply() Decision {
	next := Evaluate(g.page, g.state)

	// Any change invalidates a pending countdown.
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}

	if next == Denied {
		gen := g.gen
		page := g.page
		g.timer = time.AfterFunc(g.countdown, func() { g.fire(gen, page) })
		log.Debug().Str("page", string(page)).Dur("countdown", g.countdown).Msg("navigation denied")
	}

	g.decision = next
	return next
}

func (g *Gate) fire(gen uint64, page Page) {
	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.mu.Unlock()

	log.Debug().Str("page", string(page)).Msg("denial countdown expired, redirecting home")
	g.redirect(PageHome)
}
