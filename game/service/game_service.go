package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/command"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

// ReplaceService defines all autoreplace operations
type ReplaceService interface {
	// Session Management
	CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Dialogs
	OpenDialog(ctx context.Context, sessionID string, cat catalog.Category, group catalog.GroupID) (*replace.View, error)
	GetView(ctx context.Context, sessionID string, cat catalog.Category) (*replace.View, error)
	Dispatch(ctx context.Context, sessionID string, cat catalog.Category, action Action) (*DialogResult, error)
	CloseDialog(ctx context.Context, sessionID string, cat catalog.Category) error

	// World
	ListEngines(ctx context.Context, sessionID string, cat catalog.Category) ([]EngineInfo, error)
	BuyVehicles(ctx context.Context, sessionID string, group catalog.GroupID, engine catalog.EngineID, count int) (*FleetResult, error)
	SellVehicles(ctx context.Context, sessionID string, group catalog.GroupID, engine catalog.EngineID, count int) (*FleetResult, error)
	IntroduceEngine(ctx context.Context, sessionID string, engine catalog.EngineID) (*catalog.EngineModel, error)
	RetireEngine(ctx context.Context, sessionID string, engine catalog.EngineID) (*catalog.EngineModel, error)

	// Simulation
	Tick(ctx context.Context, sessionID string) (*TickResult, error)
	TickAll(ctx context.Context) ([]*TickResult, error)
	GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, scenarioName string) (*catalog.Scenario, error)
	SaveScenario(ctx context.Context, scenarioName string, scenario *catalog.Scenario) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, scenarioID string, scenario *catalog.Scenario) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ScenarioManager handles scenario loading
type ScenarioManager interface {
	LoadScenario(name string) (*catalog.Scenario, error)
	ListScenarios() ([]*ScenarioInfo, error)
	GetDefault() *catalog.Scenario
	SaveScenario(name string, scenario *catalog.Scenario) error
}

// Session is one running game: a world, its command queue and the replace
// dialogs open on it, at most one per vehicle category
type Session struct {
	ID             string
	ScenarioID     string
	Scenario       *catalog.Scenario
	World          *catalog.World
	Commands       *command.Executor
	Preferences    *replace.Preferences
	Dialogs        map[catalog.Category]*replace.Dialog
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// NewSession builds the world of a scenario and wires its command queue to
// the session's dialogs
func NewSession(id, scenarioID string, scenario *catalog.Scenario) (*Session, error) {
	world, err := catalog.NewWorld(scenario)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:             id,
		ScenarioID:     scenarioID,
		Scenario:       scenario,
		World:          world,
		Preferences:    replace.NewPreferences(),
		Dialogs:        make(map[catalog.Category]*replace.Dialog),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	sess.Commands = command.NewExecutor(world, sess)
	return sess, nil
}

// Owner returns the company the session plays
func (s *Session) Owner() catalog.OwnerID {
	return s.Scenario.Owner
}

// Invalidate forwards an invalidation signal to the open dialog of cat
func (s *Session) Invalidate(owner catalog.OwnerID, cat catalog.Category, sd replace.Side) {
	if owner != s.Owner() {
		return
	}
	if d, ok := s.Dialogs[cat]; ok {
		d.Handle(replace.Invalidate{Side: sd})
	}
}
