package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
	"github.com/wricardo/mcp-training/autoreplace/game/session"
)

var errNotFound = errors.New("session not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, scenarioID string, scenario *catalog.Scenario) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}
	sess, err := service.NewSession(id, scenarioID, scenario)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errNotFound
}

// MockScenarioManager implements service.ScenarioManager for testing
type MockScenarioManager struct {
	scenarios map[string]*catalog.Scenario
}

func NewMockScenarioManager() *MockScenarioManager {
	return &MockScenarioManager{
		scenarios: map[string]*catalog.Scenario{"default": catalog.DefaultScenario()},
	}
}

func (m *MockScenarioManager) LoadScenario(name string) (*catalog.Scenario, error) {
	s, ok := m.scenarios[name]
	if !ok {
		return nil, service.ErrScenarioNotFound
	}
	return s, nil
}

func (m *MockScenarioManager) ListScenarios() ([]*service.ScenarioInfo, error) {
	var infos []*service.ScenarioInfo
	for id, s := range m.scenarios {
		infos = append(infos, &service.ScenarioInfo{ScenarioID: id, Name: s.Name, Engines: len(s.Engines)})
	}
	return infos, nil
}

func (m *MockScenarioManager) GetDefault() *catalog.Scenario {
	return m.scenarios["default"]
}

func (m *MockScenarioManager) SaveScenario(name string, s *catalog.Scenario) error {
	if err := catalog.ValidateScenario(s); err != nil {
		return err
	}
	m.scenarios[name] = s
	return nil
}

func newService(t *testing.T) (service.ReplaceService, string) {
	t.Helper()
	svc := service.NewReplaceService(NewMockSessionManager(), NewMockScenarioManager())
	info, err := svc.CreateSession(context.Background(), "default")
	require.NoError(t, err)
	return svc, info.ID
}

func TestCreateSession(t *testing.T) {
	svc := service.NewReplaceService(NewMockSessionManager(), NewMockScenarioManager())
	ctx := context.Background()

	t.Run("named scenario", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "default")
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "default", info.ScenarioName)
		assert.Equal(t, catalog.Rail, info.DefaultRail)
		assert.Empty(t, info.OpenDialogs)
	})

	t.Run("default scenario", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "default", info.ScenarioName)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrScenarioNotFound)
		assert.Contains(t, err.Error(), "Available scenarios")
	})
}

func TestSessionLifecycle(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	_, err := svc.OpenDialog(ctx, id, catalog.Road, catalog.DefaultGroup)
	require.NoError(t, err)

	info, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Category{catalog.Road}, info.OpenDialogs)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, svc.DeleteSession(ctx, id))
	_, err = svc.GetSession(ctx, id)
	assert.ErrorIs(t, err, errNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, id), errNotFound)
}

func TestOpenDialog(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	v, err := svc.OpenDialog(ctx, id, catalog.Train, catalog.DefaultGroup)
	require.NoError(t, err)
	assert.Equal(t, replace.Idle, v.Status)
	assert.Equal(t, catalog.EngineID(0), v.Source.Selected)
	require.NotNil(t, v.RailType)
	assert.Equal(t, catalog.Rail, *v.RailType)
	assert.Equal(t, []catalog.RailType{catalog.Rail, catalog.Electric}, v.AvailableRailTypes)

	_, err = svc.OpenDialog(ctx, id, catalog.Category(9), catalog.DefaultGroup)
	assert.ErrorIs(t, err, service.ErrInvalidCategory)

	_, err = svc.OpenDialog(ctx, id, catalog.Train, 42)
	assert.ErrorIs(t, err, catalog.ErrUnknownGroup)

	_, err = svc.OpenDialog(ctx, "missing", catalog.Train, catalog.DefaultGroup)
	assert.ErrorIs(t, err, errNotFound)
}

func TestOpenDialog_ReopenStartsFresh(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	_, err := svc.OpenDialog(ctx, id, catalog.Train, catalog.DefaultGroup)
	require.NoError(t, err)
	res, err := svc.Dispatch(ctx, id, catalog.Train, service.Action{Type: service.ActionToggleMode})
	require.NoError(t, err)
	require.False(t, *res.View.ShowEngines)

	v, err := svc.OpenDialog(ctx, id, catalog.Train, catalog.AllGroup)
	require.NoError(t, err)
	assert.True(t, *v.ShowEngines)
	assert.Equal(t, catalog.AllGroup, v.Group)
}

func TestDispatch(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, id, catalog.Road, service.Action{Type: service.ActionToggleMode})
	assert.ErrorIs(t, err, service.ErrDialogNotOpen)

	_, err = svc.OpenDialog(ctx, id, catalog.Train, catalog.DefaultGroup)
	require.NoError(t, err)

	t.Run("click by row", func(t *testing.T) {
		row := 1
		res, err := svc.Dispatch(ctx, id, catalog.Train, service.Action{Type: service.ActionClick, Side: "source", Row: &row})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, catalog.EngineID(2), res.View.Source.Selected)
		assert.Equal(t, catalog.EngineID(1), res.View.Replacement)
		assert.Equal(t, "MJS 250 (Diesel)", res.View.Info)
	})

	t.Run("unavailable rail type", func(t *testing.T) {
		_, err := svc.Dispatch(ctx, id, catalog.Train, service.Action{Type: service.ActionSelectRailType, RailType: "maglev"})
		assert.ErrorIs(t, err, service.ErrRailTypeUnavailable)
	})

	t.Run("available rail type", func(t *testing.T) {
		res, err := svc.Dispatch(ctx, id, catalog.Train, service.Action{Type: service.ActionSelectRailType, RailType: "elrail"})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, catalog.Electric, *res.View.RailType)

		info, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, catalog.Electric, info.DefaultRail, "the pick becomes the session default")
	})

	t.Run("invalid actions", func(t *testing.T) {
		for _, a := range []service.Action{
			{Type: "fly"},
			{Type: service.ActionClick, Side: "source"},
			{Type: service.ActionClick, Side: "middle", Y: new(int)},
			{Type: service.ActionSelectRailType, RailType: "hyperloop"},
		} {
			_, err := svc.Dispatch(ctx, id, catalog.Train, a)
			assert.ErrorIs(t, err, service.ErrInvalidAction, a.Type)
		}
	})
}

func TestReplacementRoundTrip(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	v, err := svc.OpenDialog(ctx, id, catalog.Ship, catalog.DefaultGroup)
	require.NoError(t, err)
	require.True(t, v.StartEnabled)

	res, err := svc.Dispatch(ctx, id, catalog.Ship, service.Action{Type: service.ActionStartReplacing})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.View.StartEnabled, "applied on the next tick")

	info, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PendingCommands)

	tick, err := svc.Tick(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, tick.Executed)
	require.Len(t, tick.Commands, 1)
	assert.True(t, tick.Commands[0].Applied)

	v, err = svc.GetView(ctx, id, catalog.Ship)
	require.NoError(t, err)
	assert.False(t, v.StartEnabled)
	assert.True(t, v.StopEnabled)
	assert.Equal(t, catalog.EngineID(12), v.Replacement)

	_, err = svc.Dispatch(ctx, id, catalog.Ship, service.Action{Type: service.ActionStopReplacing})
	require.NoError(t, err)
	results, err := svc.TickAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	v, err = svc.GetView(ctx, id, catalog.Ship)
	require.NoError(t, err)
	assert.Equal(t, "Not replacing", v.Info)

	history, err := svc.GetHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, history.Executed)
	assert.Len(t, history.Entries, 2)
}

func TestWorldEvents_InvalidateOpenDialog(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	v, err := svc.OpenDialog(ctx, id, catalog.Road, catalog.DefaultGroup)
	require.NoError(t, err)
	require.Equal(t, 1, v.Source.Total)

	fleet, err := svc.BuyVehicles(ctx, id, catalog.DefaultGroup, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fleet.GroupCount)
	assert.Equal(t, 2, fleet.TotalCount)

	v, err = svc.GetView(ctx, id, catalog.Road)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Source.Total, "the coal truck is now listed")

	_, err = svc.SellVehicles(ctx, id, catalog.DefaultGroup, 9, 2)
	require.NoError(t, err)
	v, err = svc.GetView(ctx, id, catalog.Road)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Source.Total)

	e, err := svc.RetireEngine(ctx, id, 8)
	require.NoError(t, err)
	assert.False(t, e.Buildable)
	v, err = svc.GetView(ctx, id, catalog.Road)
	require.NoError(t, err)
	assert.Empty(t, v.Target.Rows)

	_, err = svc.IntroduceEngine(ctx, id, 8)
	require.NoError(t, err)
	v, err = svc.GetView(ctx, id, catalog.Road)
	require.NoError(t, err)
	assert.Len(t, v.Target.Rows, 1)
}

func TestCloseDialog(t *testing.T) {
	svc, id := newService(t)
	ctx := context.Background()

	_, err := svc.OpenDialog(ctx, id, catalog.Aircraft, catalog.DefaultGroup)
	require.NoError(t, err)
	require.NoError(t, svc.CloseDialog(ctx, id, catalog.Aircraft))

	_, err = svc.GetView(ctx, id, catalog.Aircraft)
	assert.ErrorIs(t, err, service.ErrDialogNotOpen)
	assert.ErrorIs(t, svc.CloseDialog(ctx, id, catalog.Aircraft), service.ErrDialogNotOpen)
}

func TestListEngines(t *testing.T) {
	svc, id := newService(t)

	engines, err := svc.ListEngines(context.Background(), id, catalog.Train)
	require.NoError(t, err)
	require.Len(t, engines, 7)
	assert.Equal(t, 3, engines[0].Owned)
	assert.Equal(t, catalog.EngineID(1), engines[2].Replacement)
	assert.Equal(t, catalog.InvalidEngine, engines[0].Replacement)
}

func TestScenarios(t *testing.T) {
	svc := service.NewReplaceService(NewMockSessionManager(), NewMockScenarioManager())
	ctx := context.Background()

	s := catalog.DefaultScenario()
	s.Name = "copy"
	require.NoError(t, svc.SaveScenario(ctx, "copy", s))
	assert.Error(t, svc.SaveScenario(ctx, "../escape", s))

	loaded, err := svc.LoadScenario(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, "copy", loaded.Name)

	list, err := svc.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// Read-only calls still refresh the session's access time, so they must not
// overlap each other. Run with -race.
func TestConcurrentReads(t *testing.T) {
	svc := service.NewReplaceService(session.NewManager(), NewMockScenarioManager())
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, "default")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				got, err := svc.GetSession(ctx, info.ID)
				if !assert.NoError(t, err) {
					return
				}
				assert.False(t, got.LastAccessedAt.Before(info.CreatedAt))

				_, err = svc.ListSessions(ctx)
				assert.NoError(t, err)
				_, err = svc.ListEngines(ctx, info.ID, catalog.Ship)
				assert.NoError(t, err)
				_, err = svc.GetHistory(ctx, info.ID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
