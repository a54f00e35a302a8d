package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/visionhq/vision-desktop/internal/models"
	"github.com/visionhq/vision-desktop/internal/resource"
)

// ProjectsCmd lists the project catalog.
type ProjectsCmd struct {
	List ProjectsListCmd `cmd:"" default:"1" help:"List projects"`
}

type ProjectsListCmd struct{}

func (c *ProjectsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cache := resource.NewCache(app.store, app.settings, "projects", app.platform.ListProjects,
		resource.WithEnrichment(app.platform.ResolveExternalProject,
			func(p models.Project) string { return p.ID }, 128))
	cache.Hydrate()

	items, err := cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tEXTERNAL\tUPDATED")
	for _, p := range items {
		external := ""
		if p.External {
			external = "*"
		}
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, external, updated)
	}
	w.Flush()

	return nil
}

// NewsCmd lists published announcements.
type NewsCmd struct {
	List NewsListCmd `cmd:"" default:"1" help:"List news"`
}

type NewsListCmd struct{}

func (c *NewsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cache := resource.NewCache(app.store, app.settings, "news", app.platform.ListNews)
	cache.Hydrate()

	items, err := cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list news: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No news found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPUBLISHED")
	for _, n := range items {
		published := ""
		if !n.PublishedAt.IsZero() {
			published = n.PublishedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Title, n.Author, published)
	}
	w.Flush()

	return nil
}

// MediaCmd lists the media library.
type MediaCmd struct {
	List MediaListCmd `cmd:"" default:"1" help:"List media"`
}

type MediaListCmd struct{}

func (c *MediaListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cache := resource.NewCache(app.store, app.settings, "media", app.platform.ListMedia)
	cache.Hydrate()

	items, err := cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list media: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No media found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tSIZE")
	for _, m := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Kind, formatSize(m.SizeBytes))
	}
	w.Flush()

	return nil
}

// CalendarCmd lists the shared calendar.
type CalendarCmd struct {
	List CalendarListCmd `cmd:"" default:"1" help:"List calendar events"`
}

type CalendarListCmd struct{}

func (c *CalendarListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(ctx, globals)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	cache := resource.NewCache(app.store, app.settings, "calendar", app.platform.ListCalendar)
	cache.Hydrate()

	items, err := cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list calendar events: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTARTS\tLOCATION")
	for _, e := range items {
		starts := ""
		if !e.StartsAt.IsZero() {
			starts = e.StartsAt.Format("2006-01-02 15:04")
			if e.AllDay {
				starts = e.StartsAt.Format("2006-01-02") + " (all day)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Title, starts, e.Location)
	}
	w.Flush()

	return nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
