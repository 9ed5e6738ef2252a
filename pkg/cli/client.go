package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a thin HTTP client for the report API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 20 * time.Minute},
	}
}

// PrintJSON fetches path and writes the response body, re-indented, to out.
func (c *Client) PrintJSON(ctx context.Context, path string, out io.Writer) error {
	return c.do(ctx, http.MethodGet, path, out)
}

// PostJSON issues a POST to path and writes the response body to out.
func (c *Client) PostJSON(ctx context.Context, path string, out io.Writer) error {
	return c.do(ctx, http.MethodPost, path, out)
}

func (c *Client) do(ctx context.Context, method, path string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", resp.Status, errorMessage(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		_, werr := out.Write(body)
		return werr
	}
	pretty.WriteByte('\n')
	_, err = out.Write(pretty.Bytes())
	return err
}

// errorMessage extracts the message from an API error payload, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string   `json:"message"`
		Causes  []string `json:"likely_causes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return strings.TrimSpace(string(body))
	}
	if len(payload.Causes) == 0 {
		return payload.Message
	}
	return payload.Message + "\nPlease ensure:\n  - " + strings.Join(payload.Causes, "\n  - ")
}
