package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/visionhq/vision-desktop/internal/deeplink"
	"github.com/visionhq/vision-desktop/internal/gate"
)

// OpenCmd handles a vision:// URL the way the desktop shell would: an OAuth
// callback completes the pending login, a route URL is gated against the
// current capabilities.
type OpenCmd struct {
	URL string `arg:"" help:"A vision:// URL"`
}

func (c *OpenCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if deeplink.IsCallback(u) {
		if err := app.session.HandleCallback(ctx, c.URL); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
		fmt.Printf("Signed in as %s.\n", app.session.Current().UID)
		return nil
	}

	route := deeplink.ExtractRoute(u)
	if route == "" {
		return fmt.Errorf("unrecognized deep link: %s", c.URL)
	}

	st, err := app.resolve(ctx)
	if err != nil {
		return err
	}

	decision := gate.Evaluate(gate.Page(route), st)
	fmt.Printf("Navigate to %s: %s\n", route, decision)

	if decision == gate.Denied {
		return fmt.Errorf("access to %q is denied", route)
	}
	return nil
}
