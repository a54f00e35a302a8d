package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/visionhq/vision-desktop/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Sign in via the identity provider"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Sign out and clear local state"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the current identity"`
		Authz    commands.AuthzCmd    `cmd:"" help:"Show authorization claim and capabilities"`
		Gate     commands.GateCmd     `cmd:"" help:"Evaluate page access"`
		Projects commands.ProjectsCmd `cmd:"" help:"Project catalog"`
		News     commands.NewsCmd     `cmd:"" help:"Published announcements"`
		Media    commands.MediaCmd    `cmd:"" help:"Media library"`
		Calendar commands.CalendarCmd `cmd:"" help:"Shared calendar"`
		Members  commands.MembersCmd  `cmd:"" help:"Member roster and moderation"`
		Open     commands.OpenCmd     `cmd:"" help:"Handle a vision:// URL"`
		Settings commands.SettingsCmd `cmd:"" help:"Inspect or change app settings"`
		Ver      commands.VersionCmd  `cmd:"" name:"version" help:"Show version information"`
		Debug    bool                 `help:"Enable debug mode."`
		Config   string               `help:"Path to the configuration file."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Config: cli.Config, Version: version})
	cmd.FatalIfErrorf(err)
}
