// Package bridge talks to the native desktop shell when the client core is
// hosted inside one. The shell exposes a small command surface (HTTP
// execution, URL opening, app info) over a local socket; when no shell is
// present the client core falls back to direct HTTP.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvSocket names the environment variable the native shell sets to the
// path of its command socket.
const EnvSocket = "VISION_SHELL_SOCKET"

// HTTPRequest is the payload of the shell's http.execute command.
type HTTPRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// HTTPResponse is the shell's http.execute result.
type HTTPResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// AppInfo identifies the hosting application.
type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Shell is the native-shell collaborator.
type Shell interface {
	HTTPExecute(ctx context.Context, req HTTPRequest) (*HTTPResponse, error)
	OpenURL(ctx context.Context, url string) error
	AppInfo(ctx context.Context) (*AppInfo, error)
}

var (
	detectOnce sync.Once
	detected   Shell
)

// Detect reports the ambient native shell, or nil when the process is not
// hosted by one. The result is memoized for the process lifetime.
func Detect() Shell {
	detectOnce.Do(func() {
		path := os.Getenv(EnvSocket)
		if path == "" {
			log.Debug().Msg("no native shell, using direct HTTP")
			return
		}
		detected = &socketShell{path: path}
		log.Debug().Str("socket", path).Msg("native shell detected")
	})
	return detected
}

// socketShell speaks newline-delimited JSON command envelopes over the
// shell's unix socket: one request, one response per connection.
type socketShell struct {
	path string
}

type commandEnvelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type resultEnvelope struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (s *socketShell) HTTPExecute(ctx context.Context, req HTTPRequest) (*HTTPResponse, error) {
	var resp HTTPResponse
	if err := s.invoke(ctx, "http.execute", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *socketShell) OpenURL(ctx context.Context, url string) error {
	return s.invoke(ctx, "url.open", map[string]string{"url": url}, nil)
}

func (s *socketShell) AppInfo(ctx context.Context) (*AppInfo, error) {
	var info AppInfo
	if err := s.invoke(ctx, "app.info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *socketShell) invoke(ctx context.Context, command string, payload any, out any) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to reach native shell: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Cancel the blocked read/write when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	env := commandEnvelope{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		env.Payload = raw
	}

	if err := json.NewEncoder(conn).Encode(env); err != nil {
		return wrapCtx(ctx, fmt.Errorf("failed to send %s: %w", command, err))
	}

	var result resultEnvelope
	if err := json.NewDecoder(conn).Decode(&result); err != nil {
		return wrapCtx(ctx, fmt.Errorf("failed to read %s result: %w", command, err))
	}

	if !result.OK {
		return fmt.Errorf("shell %s failed: %s", command, result.Error)
	}

	if out != nil && len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", command, err)
		}
	}

	return nil
}

// wrapCtx surfaces the context error when a socket operation failed because
// the context was cancelled underneath it.
func wrapCtx(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
