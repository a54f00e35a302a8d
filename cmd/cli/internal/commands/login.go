package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/visionhq/vision-desktop/internal/bridge"
	"github.com/visionhq/vision-desktop/internal/session"
)

// LoginCmd signs in via the identity provider's authorization-code flow.
type LoginCmd struct {
	RedirectURL string `help:"Complete a previously started login with the provider redirect URL"`
	NoBrowser   bool   `help:"Print the authorization URL instead of opening it" default:"false"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if err := app.cfg.RequireOAuth(); err != nil {
		return err
	}

	redirect := c.RedirectURL
	if redirect == "" {
		req, err := app.session.PrepareLogin()
		if err != nil {
			return fmt.Errorf("failed to start login: %w", err)
		}

		opened := false
		if shell := bridge.Detect(); shell != nil && !c.NoBrowser {
			if err := shell.OpenURL(ctx, req.AuthorizationURL); err == nil {
				opened = true
			}
		}

		if opened {
			fmt.Println("A sign-in page has been opened in your browser.")
		} else {
			fmt.Println("Open this URL to sign in:")
			fmt.Println()
			fmt.Printf("  %s\n", req.AuthorizationURL)
		}
		fmt.Println()
		fmt.Print("Paste the redirect URL here: ")

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read redirect URL: %w", err)
		}
		redirect = strings.TrimSpace(line)
	}

	if err := app.session.HandleCallback(ctx, redirect); err != nil {
		var denied *session.AuthorizationDeniedError
		if errors.As(err, &denied) {
			return fmt.Errorf("sign-in was declined by the provider: %s", denied.Error())
		}
		return fmt.Errorf("sign-in failed: %w", err)
	}

	id := app.session.Current()
	fmt.Printf("Signed in as %s.\n", id.UID)
	return nil
}
