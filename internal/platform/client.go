// Package platform is the REST client for the backend's resource endpoints.
// Listing calls go through the retrying transport; moderation actions do
// not retry.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/visionhq/vision-desktop/internal/models"
	"github.com/visionhq/vision-desktop/internal/transport"
)

// TokenSource supplies a live bearer token for the current identity.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the backend's REST endpoints.
type Client struct {
	transport *transport.Client
	tokens    TokenSource
	baseURL   string
	retry     transport.RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the listing retry policy.
func WithRetryPolicy(p transport.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// New creates a platform client rooted at serverURL.
func New(tc *transport.Client, tokens TokenSource, serverURL string, opts ...Option) *Client {
	c := &Client{
		transport: tc,
		tokens:    tokens,
		baseURL:   strings.TrimSuffix(serverURL, "/"),
		retry:     transport.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProjects fetches the project catalog.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var items []models.Project
	if err := c.list(ctx, "/projects", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ResolveExternalProject fetches the canonical title and cover for an
// externally hosted project. Projects that need no resolution pass through
// unchanged.
func (c *Client) ResolveExternalProject(ctx context.Context, p models.Project) (models.Project, error) {
	if !p.NeedsResolve() {
		return p, nil
	}

	var resolved struct {
		Title    string `json:"title"`
		CoverURL string `json:"coverUrl"`
	}
	if err := c.list(ctx, "/projects/external/"+p.ExternalRef, &resolved); err != nil {
		return models.Project{}, err
	}

	if resolved.Title != "" {
		p.Title = resolved.Title
	}
	if resolved.CoverURL != "" {
		p.CoverURL = resolved.CoverURL
	}
	return p, nil
}

// ListNews fetches published announcements.
func (c *Client) ListNews(ctx context.Context) ([]models.NewsItem, error) {
	var items []models.NewsItem
	if err := c.list(ctx, "/news", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListMedia fetches the media library index.
func (c *Client) ListMedia(ctx context.Context) ([]models.MediaItem, error) {
	var items []models.MediaItem
	if err := c.list(ctx, "/media", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListCalendar fetches the shared calendar.
func (c *Client) ListCalendar(ctx context.Context) ([]models.CalendarEvent, error) {
	var items []models.CalendarEvent
	if err := c.list(ctx, "/calendar", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListMembers fetches the member roster.
func (c *Client) ListMembers(ctx context.Context) ([]models.Member, error) {
	var items []models.Member
	if err := c.list(ctx, "/members", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BanMember bans a member. The action is not retried.
func (c *Client) BanMember(ctx context.Context, uid, reason string) error {
	return c.post(ctx, "/members/"+uid+"/ban", map[string]string{"reason": reason})
}

// WarnMember records a warning against a member. The action is not retried.
func (c *Client) WarnMember(ctx context.Context, uid, reason string) error {
	return c.post(ctx, "/members/"+uid+"/warn", map[string]string{"reason": reason})
}

func (c *Client) list(ctx context.Context, path string, out any) error {
	header, err := c.authHeader(ctx)
	if err != nil {
		return err
	}

	resp, err := c.transport.DoRetry(ctx, transport.Request{
		URL:    c.baseURL + path,
		Header: header,
	}, c.retry)
	if err != nil {
		return err
	}

	if len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrDecode, err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	header, err := c.authHeader(ctx)
	if err != nil {
		return err
	}
	header["Content-Type"] = "application/json"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	_, err = c.transport.Do(ctx, transport.Request{
		Method: "POST",
		URL:    c.baseURL + path,
		Header: header,
		Body:   string(body),
	})
	return err
}

func (c *Client) authHeader(ctx context.Context) (map[string]string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bearer token: %w", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}
