package commands

import (
	"context"
	"fmt"

	"github.com/visionhq/vision-desktop/internal/gate"
)

// GateCmd evaluates whether the current identity may open a page.
type GateCmd struct {
	Page string `arg:"" help:"Page name (e.g. projects, media, admin)"`
}

func (c *GateCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	st, err := app.resolve(ctx)
	if err != nil {
		return err
	}

	decision := gate.Evaluate(gate.Page(c.Page), st)
	fmt.Printf("%s: %s\n", c.Page, decision)

	if decision == gate.Denied {
		return fmt.Errorf("access to %q is denied", c.Page)
	}
	return nil
}
