package commands

import (
	"context"
	"fmt"

	"github.com/visionhq/vision-desktop/internal/bridge"
)

// VersionCmd prints the CLI version, and the native shell's app info when
// the process is hosted by one.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx context.Context, globals *Globals) error {
	fmt.Printf("vision-cli %s\n", globals.Version)

	if shell := bridge.Detect(); shell != nil {
		info, err := shell.AppInfo(ctx)
		if err != nil {
			return fmt.Errorf("failed to read shell app info: %w", err)
		}
		fmt.Printf("shell: %s %s\n", info.Name, info.Version)
	}

	return nil
}
