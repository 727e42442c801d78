package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/autoreplace/api"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/command"
	"github.com/wricardo/mcp-training/autoreplace/game/config"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
	"github.com/wricardo/mcp-training/autoreplace/game/session"
)

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return content.Text
}

// newBackend starts the real REST API over a fresh service
func newBackend(t *testing.T) *Client {
	t.Helper()
	scenarios, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	svc := service.NewReplaceService(session.NewManager(), scenarios)

	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(map[string]string{"echo": body["value"]})
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}
	}))
	defer server.Close()
	client := NewClient(server.URL)
	ctx := context.Background()

	var response map[string]string
	require.NoError(t, client.apiCall(ctx, "POST", "/ok", map[string]string{"value": "hi"}, &response))
	assert.Equal(t, "hi", response["echo"])

	err := client.apiCall(ctx, "GET", "/missing", nil, nil)
	assert.EqualError(t, err, "session not found")

	err = client.apiCall(ctx, "GET", "/boom", nil, nil)
	assert.EqualError(t, err, "API error: 500")

	err = NewClient("http://127.0.0.1:1").apiCall(ctx, "GET", "/", nil, nil)
	assert.Error(t, err)
}

func TestClient_MissingArguments(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	ctx := context.Background()

	result, err := client.handleGetSession(ctx, call(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "session_id is required")

	result, err = client.handleOpenDialog(ctx, call(map[string]interface{}{"session_id": "x", "category": "boat"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = client.handleBuyVehicles(ctx, call(map[string]interface{}{"session_id": "x", "count": 1.0}))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "engine is required")
}

func TestClient_EndToEnd(t *testing.T) {
	client := newBackend(t)
	ctx := context.Background()

	result, err := client.handleCreateSession(ctx, call(map[string]interface{}{}))
	require.NoError(t, err)
	out := text(t, result)
	require.Contains(t, out, "Created session: ")
	id := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "Created session: "))

	args := func(extra map[string]interface{}) map[string]interface{} {
		m := map[string]interface{}{"session_id": id}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	result, err = client.handleOpenDialog(ctx, call(args(map[string]interface{}{"category": "train"})))
	require.NoError(t, err)
	out = text(t, result)
	assert.Contains(t, out, "Replace train (ungrouped vehicles)")
	assert.Contains(t, out, "Showing: locomotives on rail")

	result, err = client.handleDialogAction(ctx, call(args(map[string]interface{}{
		"category": "train", "action": "click", "side": "source", "row": 1.0,
	})))
	require.NoError(t, err)
	out = text(t, result)
	assert.False(t, result.IsError, out)
	assert.Contains(t, out, "> [1] SH '8P' (Steam)")
	assert.Contains(t, out, "Info: MJS 250 (Diesel)")

	result, err = client.handleDialogAction(ctx, call(args(map[string]interface{}{
		"category": "train", "action": "select_rail_type", "rail_type": "maglev",
	})))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = client.handleOpenDialog(ctx, call(args(map[string]interface{}{"category": "ship"})))
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	result, err = client.handleDialogAction(ctx, call(args(map[string]interface{}{"category": "ship", "action": "start_replacing"})))
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	result, err = client.handleTick(ctx, call(args(nil)))
	require.NoError(t, err)
	out = text(t, result)
	assert.Contains(t, out, "1 applied, 0 rejected")
	assert.Contains(t, out, "set-replacement(group=65534, from=11, to=12)")

	result, err = client.handleListEngines(ctx, call(args(map[string]interface{}{"category": "ship"})))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "replaced by 12")

	result, err = client.handleBuyVehicles(ctx, call(args(map[string]interface{}{"engine": 9.0, "count": 2.0})))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "company total 2")

	result, err = client.handleRetireEngine(ctx, call(args(map[string]interface{}{"engine": 8.0})))
	require.NoError(t, err)
	assert.Equal(t, "Hereford Leopard Bus (8) is now retired", text(t, result))

	result, err = client.handleCommandHistory(ctx, call(args(map[string]interface{}{"limit": 2.0})))
	require.NoError(t, err)
	out = text(t, result)
	assert.Contains(t, out, "buy(group=65534, engine=9, count=2)")
	assert.Contains(t, out, "retire(engine=8)")
	assert.NotContains(t, out, "set-replacement")

	result, err = client.handleGetSession(ctx, call(args(nil)))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "Open dialogs: train, ship")

	result, err = client.handleCloseDialog(ctx, call(args(map[string]interface{}{"category": "ship"})))
	require.NoError(t, err)
	assert.Equal(t, "ship dialog closed", text(t, result))

	result, err = client.handleDeleteSession(ctx, call(args(nil)))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "deleted")

	result, err = client.handleGetSession(ctx, call(args(nil)))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestClient_ListScenarios(t *testing.T) {
	client := newBackend(t)

	result, err := client.handleListScenarios(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "built-in default")
}

func TestClient_Instructions(t *testing.T) {
	result, err := NewClient("http://localhost").handleInstructions(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, text(t, result), "start_replacing")
}

func TestFormatView(t *testing.T) {
	show := false
	rt := catalog.Monorail
	keep := true
	v := &replace.View{
		Category:           catalog.Train,
		Group:              3,
		ShowEngines:        &show,
		RailType:           &rt,
		AvailableRailTypes: []catalog.RailType{catalog.Rail, catalog.Monorail},
		KeepLength:         &keep,
		Source: replace.ListView{
			Total: 10, Capacity: 4, Scroll: 2, Selected: 5,
			Rows: []replace.Row{
				{Engine: 4, Name: "Carriage", Owned: 3},
				{Engine: 5, Name: "Coach", Owned: 1, Selected: true},
			},
		},
		Target:       replace.ListView{Selected: catalog.InvalidEngine, Capacity: 4},
		Replacement:  catalog.InvalidEngine,
		StartEnabled: false,
		Info:         replace.InfoNotReplacing,
	}

	out := formatView(v)
	for _, want := range []string{
		"Replace train (group 3)",
		"Showing: wagons on monorail (available: rail, monorail)",
		"Source (owned): 10 engines, rows 2-3 shown",
		"> [1] Coach (id 5) x1",
		"  [0] Carriage (id 4) x3",
		"Target (replace with): 0 engines\n  (empty)",
		"Info: Not replacing",
		"Start replacing: disabled",
		"Keep length: true",
	} {
		assert.Contains(t, out, want)
	}

	assert.Equal(t, "(no dialog)", formatView(nil))
	assert.Contains(t, formatView(&replace.View{Status: replace.Closed, Category: catalog.Road, Group: catalog.AllGroup}), "Replace road (all vehicles) [closed]")
}

func TestFormatTickAndHistory(t *testing.T) {
	assert.Equal(t, "Tick: no pending commands", formatTick(&service.TickResult{}))

	out := formatTick(&service.TickResult{
		Executed: 1, Rejected: 1,
		Commands: []service.CommandResult{
			{Request: replace.Request{Kind: replace.SetKeepLength, KeepLength: true}, Applied: true},
			{Request: replace.Request{Kind: replace.ClearReplacement, Group: 1, From: 2}, Error: "nope"},
		},
	})
	assert.Contains(t, out, "✓ set-keep-length(true)")
	assert.Contains(t, out, "✗ clear-replacement(group=1, from=2): nope")

	out = formatHistory(&service.HistoryResponse{})
	assert.Contains(t, out, "(empty)")

	out = formatHistory(&service.HistoryResponse{
		Executed: 1,
		Entries:  []command.HistoryEntry{{Number: 1, Action: "retire(engine=8)", Success: true, Timestamp: time.Now().Unix()}},
	})
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "retire(engine=8) OK")
}
