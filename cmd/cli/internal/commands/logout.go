package commands

import (
	"context"
	"fmt"
)

// LogoutCmd signs out and clears persisted tokens and authorization state.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if app.session.Current() == nil {
		fmt.Println("Not signed in.")
		return nil
	}

	app.session.SignOut()
	fmt.Println("Signed out.")
	return nil
}
