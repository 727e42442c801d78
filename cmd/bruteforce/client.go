package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
)

// APIError is a non-2xx answer of the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsRejected reports whether err is the server refusing a request (4xx)
// rather than failing
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// Client drives one session of a running autoreplace server
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) != nil || errResp.Error == "" {
			errResp.Error = string(data)
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) CreateSession(ctx context.Context, scenario string) (*service.SessionInfo, error) {
	body := map[string]string{}
	if scenario != "" {
		body["scenario_id"] = scenario
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

func (c *Client) GetSession(ctx context.Context) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &info); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &info, nil
}

func (c *Client) OpenDialog(ctx context.Context, cat catalog.Category, group catalog.GroupID) (*replace.View, error) {
	var view replace.View
	err := c.do(ctx, http.MethodPost, c.sessionPath("/dialogs/"+cat.String()), map[string]catalog.GroupID{"group": group}, &view)
	return &view, err
}

func (c *Client) Act(ctx context.Context, cat catalog.Category, action service.Action) (*service.DialogResult, error) {
	var result service.DialogResult
	err := c.do(ctx, http.MethodPost, c.sessionPath("/dialogs/"+cat.String()+"/actions"), action, &result)
	return &result, err
}

func (c *Client) GetView(ctx context.Context, cat catalog.Category) (*replace.View, error) {
	var view replace.View
	err := c.do(ctx, http.MethodGet, c.sessionPath("/dialogs/"+cat.String()), nil, &view)
	return &view, err
}

func (c *Client) Engines(ctx context.Context, cat catalog.Category) ([]service.EngineInfo, error) {
	var resp struct {
		Engines []service.EngineInfo `json:"engines"`
	}
	err := c.do(ctx, http.MethodGet, c.sessionPath("/engines?category="+cat.String()), nil, &resp)
	return resp.Engines, err
}

func (c *Client) Buy(ctx context.Context, engine catalog.EngineID, count int) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/fleet/buy"), map[string]int{"engine": int(engine), "count": count}, nil)
}

func (c *Client) Sell(ctx context.Context, engine catalog.EngineID, count int) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/fleet/sell"), map[string]int{"engine": int(engine), "count": count}, nil)
}

// SetBuildable introduces or retires an engine
func (c *Client) SetBuildable(ctx context.Context, engine catalog.EngineID, buildable bool) error {
	verb := "retire"
	if buildable {
		verb = "introduce"
	}
	return c.do(ctx, http.MethodPost, c.sessionPath(fmt.Sprintf("/engines/%d/%s", engine, verb)), nil, nil)
}

func (c *Client) Tick(ctx context.Context) (*service.TickResult, error) {
	var result service.TickResult
	err := c.do(ctx, http.MethodPost, c.sessionPath("/tick"), nil, &result)
	return &result, err
}
