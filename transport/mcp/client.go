package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Autoreplace",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Autoreplace - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A session is a company with a fleet of vehicles. For each vehicle category
(train, road, ship, aircraft) you can open a replace dialog. The left
(source) list shows the engine models the company owns, the right (target)
list shows the models they could be replaced with. Select one on each side
and start replacing; the change is applied on the next tick.

AVAILABLE TOOLS:
- create_session, get_session, list_sessions, delete_session
- open_dialog, get_dialog, dialog_action, close_dialog
- list_engines, buy_vehicles, sell_vehicles, introduce_engine, retire_engine
- tick, command_history
- list_scenarios, replace_instructions`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func categoryProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"train", "road", "ship", "aircraft"},
		"description": "Vehicle category",
	}
}

func groupProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Vehicle group ID (default: ungrouped vehicles, 65534)",
	}
}

func engineProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Engine model ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the scenario to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and close its dialogs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleDeleteSession)

	// Dialogs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "open_dialog",
		Description: "Open the replace dialog of a vehicle category. Reopening starts a fresh dialog.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category":   categoryProp(),
				"group":      groupProp(),
			},
			Required: []string{"session_id", "category"},
		},
	}, c.handleOpenDialog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_dialog",
		Description: "Show the current contents of an open replace dialog",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category":   categoryProp(),
			},
			Required: []string{"session_id", "category"},
		},
	}, c.handleGetDialog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dialog_action",
		Description: "Apply an action to an open replace dialog",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category":   categoryProp(),
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        service.ActionTypes,
					"description": "Action to apply",
				},
				"side": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"source", "target"},
					"description": "List the action applies to (click, scroll)",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Visible row to click, 0-based (click)",
				},
				"position": map[string]interface{}{
					"type":        "integer",
					"description": "New scroll position (scroll)",
				},
				"rail_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"rail", "elrail", "monorail", "maglev"},
					"description": "Rail type to filter trains by (select_rail_type)",
				},
				"dy": map[string]interface{}{
					"type":        "integer",
					"description": "Height change in pixels (resize)",
				},
			},
			Required: []string{"session_id", "category", "action"},
		},
	}, c.handleDialogAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_dialog",
		Description: "Close the replace dialog of a vehicle category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category":   categoryProp(),
			},
			Required: []string{"session_id", "category"},
		},
	}, c.handleCloseDialog)

	// World
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_engines",
		Description: "List every engine model of a category with owned counts and replacement rules",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"category":   categoryProp(),
			},
			Required: []string{"session_id", "category"},
		},
	}, c.handleListEngines)

	fleetSchema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProp(),
			"engine":     engineProp(),
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of vehicles",
			},
			"group": groupProp(),
		},
		Required: []string{"session_id", "engine", "count"},
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "buy_vehicles",
		Description: "Buy vehicles of an engine model into a group",
		InputSchema: fleetSchema,
	}, c.handleBuyVehicles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "sell_vehicles",
		Description: "Sell vehicles of an engine model from a group",
		InputSchema: fleetSchema,
	}, c.handleSellVehicles)

	engineSchema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProp(),
			"engine":     engineProp(),
		},
		Required: []string{"session_id", "engine"},
	}
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "introduce_engine",
		Description: "Make an engine model buildable",
		InputSchema: engineSchema,
	}, c.handleIntroduceEngine)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "retire_engine",
		Description: "Make an engine model unbuildable",
		InputSchema: engineSchema,
	}, c.handleRetireEngine)

	// Simulation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Apply the commands queued by the session's dialogs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command_history",
		Description: "Get the command and world event history of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Only show the most recent entries",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCommandHistory)

	// Scenarios
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "replace_instructions",
		Description: "Explain how the replace dialog filters and selects engines",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers. JSON numbers arrive as float64.

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id := stringArg(args, "session_id")
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

func dialogPath(args map[string]interface{}, suffix string) (string, catalog.Category, error) {
	cat, err := catalog.ParseCategory(stringArg(args, "category"))
	if err != nil {
		return "", 0, err
	}
	path, err := sessionPath(args, "/dialogs/"+cat.String()+suffix)
	return path, cat, err
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := map[string]string{}
	if id := stringArg(args, "scenario_id"); id != "" {
		body["scenario_id"] = id
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nScenario: %s\n", session.ID, session.ScenarioName)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Scenario: %s, Created: %s)\n", s.ID, s.ScenarioName, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleOpenDialog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, _, err := dialogPath(args, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]int{}
	if g, ok := intArg(args, "group"); ok {
		body["group"] = g
	}

	var view replace.View
	if err := c.apiCall(ctx, "POST", path, body, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatView(&view)), nil
}

func (c *Client) handleGetDialog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, _, err := dialogPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var view replace.View
	if err := c.apiCall(ctx, "GET", path, nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatView(&view)), nil
}

func (c *Client) handleDialogAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, _, err := dialogPath(args, "/actions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	action := service.Action{
		Type:     stringArg(args, "action"),
		Side:     stringArg(args, "side"),
		RailType: stringArg(args, "rail_type"),
	}
	if row, ok := intArg(args, "row"); ok {
		action.Row = &row
	}
	if pos, ok := intArg(args, "position"); ok {
		action.Position = pos
	}
	if dy, ok := intArg(args, "dy"); ok {
		action.DY = dy
	}

	var result service.DialogResult
	if err := c.apiCall(ctx, "POST", path, action, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatView(result.View)
	if !result.Changed {
		text = "(no change)\n\n" + text
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleCloseDialog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, _, err := dialogPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleListEngines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cat, err := catalog.ParseCategory(stringArg(args, "category"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := sessionPath(args, "/engines?category="+cat.String())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Engines []service.EngineInfo `json:"engines"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEngines(cat, response.Engines)), nil
}

func (c *Client) handleBuyVehicles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.fleetCall(ctx, request, "/fleet/buy", "Bought")
}

func (c *Client) handleSellVehicles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.fleetCall(ctx, request, "/fleet/sell", "Sold")
}

func (c *Client) fleetCall(ctx context.Context, request mcp.CallToolRequest, suffix, verb string) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	engine, ok := intArg(args, "engine")
	if !ok {
		return mcp.NewToolResultError("engine is required"), nil
	}
	count, _ := intArg(args, "count")

	body := map[string]int{"engine": engine, "count": count}
	if g, ok := intArg(args, "group"); ok {
		body["group"] = g
	}

	var result service.FleetResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %d x engine %d.\nGroup %d now holds %d, company total %d.",
		verb, count, result.Engine, result.Group, result.GroupCount, result.TotalCount)), nil
}

func (c *Client) handleIntroduceEngine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.buildableCall(ctx, request, "introduce")
}

func (c *Client) handleRetireEngine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.buildableCall(ctx, request, "retire")
}

func (c *Client) buildableCall(ctx context.Context, request mcp.CallToolRequest, verb string) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	engine, ok := intArg(args, "engine")
	if !ok {
		return mcp.NewToolResultError("engine is required"), nil
	}
	path, err := sessionPath(args, fmt.Sprintf("/engines/%d/%s", engine, verb))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var model catalog.EngineModel
	if err := c.apiCall(ctx, "POST", path, nil, &model); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state := "retired"
	if model.Buildable {
		state = "buildable"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%d) is now %s", model.Name, model.ID, state)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/tick")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTick(&result)), nil
}

func (c *Client) handleCommandHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	suffix := "/history"
	if limit, ok := intArg(args, "limit"); ok && limit > 0 {
		suffix += fmt.Sprintf("?limit=%d", limit)
	}
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	if err := c.apiCall(ctx, "GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	if len(scenarios) == 0 {
		b.WriteString("(none, sessions use the built-in default)\n")
	}
	for _, s := range scenarios {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Engines: %d, Vehicles: %d\n\n", s.ScenarioID, s.Name, s.Description, s.Engines, s.Vehicles)
	}
	return mcp.NewToolResultText(b.String()), nil
}

const instructions = `Autoreplace - How the replace dialog works

LISTS:
• Source (left): engine models the company owns in the dialog's group.
  For the all-vehicles group, models with a replacement rule are listed
  even when none are owned.
• Target (right): buildable models that could replace the selected source.
  They share the source's category, wagon/engine kind, tram/road kind and
  a compatible cargo. A model never replaces itself.

TRAINS:
• Both lists only show models that run on the selected rail type.
• toggle_mode switches between locomotives and wagons.
• select_rail_type changes the filter; the choice is remembered for the
  next train dialog of the session.
• toggle_keep_length keeps trains at their length when wagons are replaced.

SELECTING:
• click with side and row selects an engine; clicking the selected row
  again deselects it.
• Selecting a source clears the target unless it is still listed.

REPLACING:
• start_replacing is only enabled when the source and target differ and
  the target is not itself being replaced.
• stop_replacing is enabled when the selected source has a rule.
• Requests are queued; run tick to apply them.`

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}
