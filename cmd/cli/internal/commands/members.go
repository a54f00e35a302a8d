package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/visionhq/vision-desktop/internal/resource"
)

// MembersCmd lists and moderates community members.
type MembersCmd struct {
	List MembersListCmd `cmd:"" default:"1" help:"List members"`
	Ban  MembersBanCmd  `cmd:"" help:"Ban a member"`
	Warn MembersWarnCmd `cmd:"" help:"Warn a member"`
}

type MembersListCmd struct{}

func (c *MembersListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cache := resource.NewCache(app.store, app.settings, "members", app.platform.ListMembers)
	cache.Hydrate()

	items, err := cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No members found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tNAME\tROLES\tBANNED")
	for _, m := range items {
		banned := ""
		if m.Banned {
			banned = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.UID, m.DisplayName, strings.Join(m.Roles, ","), banned)
	}
	w.Flush()

	return nil
}

// MembersBanCmd bans a member. Requires the ban capability.
type MembersBanCmd struct {
	UID    string `arg:"" help:"Member UID"`
	Reason string `help:"Reason shown to moderators" default:""`
}

func (c *MembersBanCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	st, err := app.resolve(ctx)
	if err != nil {
		return err
	}
	if !st.Caps.CanBanMembers {
		return fmt.Errorf("you do not have permission to ban members")
	}

	if err := app.platform.BanMember(ctx, c.UID, c.Reason); err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}

	fmt.Printf("Member %s banned.\n", c.UID)
	return nil
}

// MembersWarnCmd records a warning against a member.
type MembersWarnCmd struct {
	UID    string `arg:"" help:"Member UID"`
	Reason string `help:"Reason shown to the member" default:""`
}

func (c *MembersWarnCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	st, err := app.resolve(ctx)
	if err != nil {
		return err
	}
	if !st.Caps.CanWarnMembers {
		return fmt.Errorf("you do not have permission to warn members")
	}

	if err := app.platform.WarnMember(ctx, c.UID, c.Reason); err != nil {
		return fmt.Errorf("failed to warn member: %w", err)
	}

	fmt.Printf("Member %s warned.\n", c.UID)
	return nil
}
