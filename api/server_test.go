package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/config"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
	"github.com/wricardo/mcp-training/autoreplace/game/session"
	"github.com/wricardo/mcp-training/autoreplace/transport/websocket"
)

func newTestService(t *testing.T) service.ReplaceService {
	t.Helper()
	scenarios, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	return service.NewReplaceService(session.NewManager(), scenarios)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(newTestService(t), nil)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, "POST", "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[service.SessionInfo](t, w).ID
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("create with default scenario", func(t *testing.T) {
		w := do(t, s, "POST", "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		info := decode[service.SessionInfo](t, w)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "default", info.ScenarioName)
	})

	t.Run("create with unknown scenario", func(t *testing.T) {
		w := do(t, s, "POST", "/api/sessions", map[string]string{"scenario_id": "nope"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("create with malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{"))
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get, list and delete", func(t *testing.T) {
		id := createSession(t, s)

		w := do(t, s, "GET", "/api/sessions/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, decode[service.SessionInfo](t, w).ID)

		w = do(t, s, "GET", "/api/sessions?limit=1&sort=created&order=asc", nil)
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[map[string]interface{}](t, w)
		assert.EqualValues(t, 1, list["count"])
		assert.EqualValues(t, 2, list["total"])
		assert.Equal(t, "created", list["sort"])

		w = do(t, s, "DELETE", "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(t, s, "GET", "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = do(t, s, "DELETE", "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDialogEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id + "/dialogs/train"

	w := do(t, s, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "dialog not open yet")

	w = do(t, s, "POST", base, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[replace.View](t, w)
	assert.Equal(t, catalog.Train, view.Category)
	assert.Equal(t, catalog.DefaultGroup, view.Group)
	require.NotNil(t, view.RailType)
	assert.Equal(t, catalog.Rail, *view.RailType)

	row := 1
	w = do(t, s, "POST", base+"/actions", service.Action{Type: service.ActionClick, Side: "source", Row: &row})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[service.DialogResult](t, w)
	assert.True(t, result.Changed)
	assert.Equal(t, catalog.EngineID(2), result.View.Source.Selected)
	assert.Equal(t, catalog.EngineID(1), result.View.Replacement)
	assert.Equal(t, "MJS 250 (Diesel)", result.View.Info)

	w = do(t, s, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalog.EngineID(2), decode[replace.View](t, w).Source.Selected)

	w = do(t, s, "GET", "/api/sessions/"+id, nil)
	assert.Equal(t, []catalog.Category{catalog.Train}, decode[service.SessionInfo](t, w).OpenDialogs)

	w = do(t, s, "DELETE", base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, "DELETE", base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDialogEndpoints_Errors(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown category", "POST", "/api/sessions/" + id + "/dialogs/boat", nil, http.StatusBadRequest},
		{"unknown group", "POST", "/api/sessions/" + id + "/dialogs/road", map[string]int{"group": 7}, http.StatusNotFound},
		{"unknown session", "POST", "/api/sessions/missing/dialogs/road", nil, http.StatusNotFound},
		{"action on closed dialog", "POST", "/api/sessions/" + id + "/dialogs/ship/actions", service.Action{Type: service.ActionToggleMode}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}

	require.Equal(t, http.StatusCreated, do(t, s, "POST", "/api/sessions/"+id+"/dialogs/train", nil).Code)

	actions := []struct {
		name   string
		action service.Action
		status int
	}{
		{"unknown action", service.Action{Type: "explode"}, http.StatusBadRequest},
		{"click without row", service.Action{Type: service.ActionClick, Side: "source"}, http.StatusBadRequest},
		{"bad side", service.Action{Type: service.ActionScroll, Side: "middle"}, http.StatusBadRequest},
		{"unavailable rail type", service.Action{Type: service.ActionSelectRailType, RailType: "maglev"}, http.StatusBadRequest},
		{"available rail type", service.Action{Type: service.ActionSelectRailType, RailType: "elrail"}, http.StatusOK},
	}
	for _, tt := range actions {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, "POST", "/api/sessions/"+id+"/dialogs/train/actions", tt.action)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestReplacementFlow(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id

	require.Equal(t, http.StatusCreated, do(t, s, "POST", base+"/dialogs/ship", nil).Code)

	w := do(t, s, "POST", base+"/dialogs/ship/actions", service.Action{Type: service.ActionStartReplacing})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "POST", base+"/tick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tick := decode[service.TickResult](t, w)
	assert.Equal(t, 1, tick.Executed)
	assert.Equal(t, 0, tick.Rejected)

	w = do(t, s, "GET", base+"/dialogs/ship", nil)
	view := decode[replace.View](t, w)
	assert.Equal(t, catalog.EngineID(12), view.Replacement)
	assert.True(t, view.StopEnabled)

	w = do(t, s, "GET", base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[service.HistoryResponse](t, w)
	assert.Equal(t, 1, history.Executed)
	require.Len(t, history.Entries, 1)
	assert.True(t, history.Entries[0].Success)

	w = do(t, s, "GET", base+"/engines?category=ship", nil)
	require.Equal(t, http.StatusOK, w.Code)
	engines := decode[struct {
		Count   int                  `json:"count"`
		Engines []service.EngineInfo `json:"engines"`
	}](t, w)
	assert.Equal(t, 2, engines.Count)
	assert.Equal(t, catalog.EngineID(12), engines.Engines[0].Replacement)
}

func TestWorldEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id

	w := do(t, s, "POST", base+"/fleet/buy", map[string]int{"engine": 9, "count": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fleet := decode[service.FleetResult](t, w)
	assert.Equal(t, 3, fleet.GroupCount)
	assert.Equal(t, catalog.DefaultGroup, fleet.Group)

	w = do(t, s, "POST", base+"/fleet/sell", map[string]int{"engine": 9, "count": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[service.FleetResult](t, w).TotalCount)

	w = do(t, s, "POST", base+"/fleet/buy", map[string]int{"engine": 9, "count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, "POST", base+"/fleet/buy", map[string]int{"engine": 999, "count": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "POST", base+"/engines/8/retire", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[catalog.EngineModel](t, w).Buildable)

	w = do(t, s, "POST", base+"/engines/8/introduce", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[catalog.EngineModel](t, w).Buildable)

	w = do(t, s, "POST", base+"/engines/abc/introduce", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "GET", base+"/engines?category=spaceship", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sc := catalog.DefaultScenario()
	sc.Name = "Small Fleet"
	w = do(t, s, "POST", "/api/scenarios", sc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "small_fleet", decode[map[string]interface{}](t, w)["scenario_id"])

	w = do(t, s, "GET", "/api/scenarios/small_fleet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Small Fleet", decode[catalog.Scenario](t, w).Name)

	w = do(t, s, "GET", "/api/scenarios", nil)
	infos := decode[[]service.ScenarioInfo](t, w)
	require.Len(t, infos, 1)
	assert.Equal(t, "small_fleet", infos[0].ScenarioID)

	w = do(t, s, "POST", "/api/sessions", map[string]string{"scenario_id": "small_fleet"})
	assert.Equal(t, http.StatusCreated, w.Code)

	invalid := catalog.DefaultScenario()
	invalid.Engines = nil
	w = do(t, s, "POST", "/api/scenarios", invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "GET", "/api/scenarios/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", service.ErrDialogNotOpen), http.StatusNotFound},
		{session.ErrSessionAlreadyExists, http.StatusConflict},
		{service.ErrInvalidAction, http.StatusBadRequest},
		{service.ErrInvalidScenario, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestWebSocket(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	s := NewServer(newTestService(t), hub)
	server := httptest.NewServer(s)
	defer server.Close()

	t.Run("session required", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/ws")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/ws?session=missing")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("views are pushed", func(t *testing.T) {
		id := createSession(t, s)
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + id
		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool {
			do(t, s, "POST", "/api/sessions/"+id+"/dialogs/aircraft", nil)
			conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
			_, data, err := conn.ReadMessage()
			if err != nil {
				return false
			}
			var msg websocket.Message
			if json.Unmarshal(data, &msg) != nil {
				return false
			}
			return msg.Event == websocket.EventViewUpdate && msg.View != nil && msg.View.Category == catalog.Aircraft
		}, 2*time.Second, 10*time.Millisecond)
	})
}
