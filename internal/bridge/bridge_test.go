package bridge

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeShellServer answers one command per connection in the shell's
// envelope protocol.
func fakeShellServer(t *testing.T, handler func(cmd commandEnvelope) resultEnvelope) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shell.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var cmd commandEnvelope
				if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
					return
				}
				_ = json.NewEncoder(conn).Encode(handler(cmd))
			}()
		}
	}()

	return path
}

func okResult(t *testing.T, v any) resultEnvelope {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return resultEnvelope{OK: true, Result: raw}
}

func TestSocketShell_HTTPExecute(t *testing.T) {
	var gotCmd commandEnvelope
	path := fakeShellServer(t, func(cmd commandEnvelope) resultEnvelope {
		gotCmd = cmd
		return okResult(t, HTTPResponse{Status: 200, Body: `{"items":[]}`})
	})

	shell := &socketShell{path: path}
	resp, err := shell.HTTPExecute(context.Background(), HTTPRequest{
		Method: "GET",
		URL:    "https://api.vision.example/projects",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status)
	require.Equal(t, `{"items":[]}`, resp.Body)

	require.Equal(t, "http.execute", gotCmd.Command)
	var req HTTPRequest
	require.NoError(t, json.Unmarshal(gotCmd.Payload, &req))
	require.Equal(t, "https://api.vision.example/projects", req.URL)
}

func TestSocketShell_OpenURL(t *testing.T) {
	var gotCmd commandEnvelope
	path := fakeShellServer(t, func(cmd commandEnvelope) resultEnvelope {
		gotCmd = cmd
		return resultEnvelope{OK: true}
	})

	shell := &socketShell{path: path}
	require.NoError(t, shell.OpenURL(context.Background(), "https://vision.example/login"))

	require.Equal(t, "url.open", gotCmd.Command)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(gotCmd.Payload, &payload))
	require.Equal(t, "https://vision.example/login", payload["url"])
}

func TestSocketShell_AppInfo(t *testing.T) {
	path := fakeShellServer(t, func(cmd commandEnvelope) resultEnvelope {
		return okResult(t, AppInfo{Name: "Vision Desktop", Version: "1.4.2"})
	})

	shell := &socketShell{path: path}
	info, err := shell.AppInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Vision Desktop", info.Name)
	require.Equal(t, "1.4.2", info.Version)
}

func TestSocketShell_CommandError(t *testing.T) {
	path := fakeShellServer(t, func(cmd commandEnvelope) resultEnvelope {
		return resultEnvelope{OK: false, Error: "no default browser"}
	})

	shell := &socketShell{path: path}
	err := shell.OpenURL(context.Background(), "https://vision.example")
	require.ErrorContains(t, err, "no default browser")
}

func TestSocketShell_ContextCancellation(t *testing.T) {
	// A server that accepts but never answers.
	path := filepath.Join(t.TempDir(), "shell.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var held []net.Conn
		defer func() {
			for _, c := range held {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			held = append(held, conn)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	shell := &socketShell{path: path}
	_, err = shell.AppInfo(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSocketShell_UnreachableSocket(t *testing.T) {
	shell := &socketShell{path: filepath.Join(t.TempDir(), "absent.sock")}
	_, err := shell.AppInfo(context.Background())
	require.ErrorContains(t, err, "failed to reach native shell")
}
