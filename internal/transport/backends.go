package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/visionhq/vision-desktop/internal/bridge"
)

// fetchBackend performs requests directly with net/http.
type fetchBackend struct {
	client *http.Client
}

func (f *fetchBackend) execute(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{Status: httpResp.StatusCode, Body: data}, nil
}

// bridgeBackend delegates requests to the native shell's http.execute
// command and adapts its response shape.
type bridgeBackend struct {
	shell bridge.Shell
}

func (b *bridgeBackend) execute(ctx context.Context, req Request) (*Response, error) {
	resp, err := b.shell.HTTPExecute(ctx, bridge.HTTPRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Header,
		Body:    req.Body,
	})
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.Status, Body: []byte(resp.Body)}, nil
}

func unmarshalBody(body []byte, out any) error {
	if out == nil {
		if !json.Valid(body) {
			return fmt.Errorf("%w: body is not JSON", ErrDecode)
		}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
