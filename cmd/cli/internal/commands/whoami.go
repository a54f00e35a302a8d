package commands

import (
	"context"
	"fmt"
	"time"
)

// WhoamiCmd shows the current identity.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	id := app.session.Current()
	if id == nil {
		fmt.Println("Not signed in.")
		fmt.Println()
		fmt.Println("To sign in:")
		fmt.Println("  vision-cli login")
		return nil
	}

	fmt.Printf("UID:           %s\n", id.UID)
	fmt.Printf("Token expires: %s\n", id.ExpiresAt.Format("2006-01-02 15:04:05"))
	if time.Now().After(id.ExpiresAt) {
		fmt.Println()
		fmt.Println("The access token has expired; it will be refreshed on the next request.")
	}
	return nil
}
