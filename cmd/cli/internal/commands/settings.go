package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/visionhq/vision-desktop/internal/settings"
)

// SettingsCmd inspects and changes the persisted application settings.
type SettingsCmd struct {
	Get SettingsGetCmd `cmd:"" default:"1" help:"Show current settings"`
	Set SettingsSetCmd `cmd:"" help:"Change a setting"`
}

type SettingsGetCmd struct{}

func (c *SettingsGetCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cur := app.settings.Current()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "local-cache\t%v\n", cur.LocalCacheEnabled)
	fmt.Fprintf(w, "auto-refresh\t%v\n", cur.AutoRefreshEnabled)
	fmt.Fprintf(w, "debug-mode\t%v\n", cur.DebugMode)
	fmt.Fprintf(w, "telemetry\t%v\n", cur.TelemetryEnabled)
	w.Flush()

	return nil
}

// SettingsSetCmd changes one named setting.
type SettingsSetCmd struct {
	Name  string `arg:"" enum:"local-cache,auto-refresh,debug-mode,telemetry" help:"Setting name"`
	Value string `arg:"" help:"true or false"`
}

func (c *SettingsSetCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	value, err := strconv.ParseBool(c.Value)
	if err != nil {
		return fmt.Errorf("value must be true or false, got %q", c.Value)
	}

	err = app.settings.Update(func(s *settings.Settings) {
		switch c.Name {
		case "local-cache":
			s.LocalCacheEnabled = value
		case "auto-refresh":
			s.AutoRefreshEnabled = value
		case "debug-mode":
			s.DebugMode = value
		case "telemetry":
			s.TelemetryEnabled = value
		}
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Printf("%s = %v\n", c.Name, value)
	return nil
}
