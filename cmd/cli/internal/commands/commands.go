// Package commands implements the vision-cli subcommands.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/authz"
	"github.com/visionhq/vision-desktop/internal/config"
	"github.com/visionhq/vision-desktop/internal/kv"
	"github.com/visionhq/vision-desktop/internal/logger"
	"github.com/visionhq/vision-desktop/internal/platform"
	"github.com/visionhq/vision-desktop/internal/session"
	"github.com/visionhq/vision-desktop/internal/settings"
	"github.com/visionhq/vision-desktop/internal/telemetry"
	"github.com/visionhq/vision-desktop/internal/transport"
)

type Globals struct {
	Debug   bool
	Config  string
	Version string
}

// app wires the client subsystems for one command invocation.
type app struct {
	cfg      *config.Config
	store    *kv.Store
	settings *settings.Manager
	session  *session.Session
	platform *platform.Client
	resolver *authz.Resolver

	shutdown func(context.Context) error
}

func newApp(ctx context.Context, globals *Globals) (*app, error) {
	log.Logger = logger.Setup(globals.Debug)

	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := kv.Open(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	sm, err := settings.NewManager(store)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, "vision-cli", globals.Version, sm.Current().TelemetryEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	httpClient := transport.NewCachingHTTPClient(cfg.CacheDir, log.Logger)
	if sm.Current().TelemetryEnabled {
		httpClient.Transport = telemetry.NewTransport(httpClient.Transport)
	}

	installID, err := store.InstallID()
	if err != nil {
		return nil, fmt.Errorf("failed to read install id: %w", err)
	}

	tc := transport.New(
		transport.WithHTTPClient(httpClient),
		transport.WithDefaultHeader("X-Client-Id", installID),
	)
	sess := session.New(store, cfg.OAuth, session.WithHTTPClient(httpClient))

	resolver := authz.NewResolver(tc, authz.NewClaimCache(store), sess, cfg.ServerURL)
	resolver.Bind(sess)

	return &app{
		cfg:      cfg,
		store:    store,
		settings: sm,
		session:  sess,
		platform: platform.New(tc, sess, cfg.ServerURL),
		resolver: resolver,
		shutdown: shutdown,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}

// resolve runs an authorization fetch for the current identity and waits
// for the final (non-provisional) state.
func (a *app) resolve(ctx context.Context) (authz.State, error) {
	id := a.session.Current()
	if id == nil {
		return authz.State{}, session.ErrNotSignedIn
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	states := make(chan authz.State, 8)
	unsub := a.resolver.OnChange(func(st authz.State) {
		select {
		case states <- st:
		default:
		}
	})
	defer unsub()

	a.resolver.SetIdentity(id.UID)

	for {
		select {
		case <-ctx.Done():
			return authz.State{}, fmt.Errorf("authorization resolution timed out: %w", ctx.Err())
		case st := <-states:
			if st.Resolved && !st.Provisional {
				return st, nil
			}
		}
	}
}
