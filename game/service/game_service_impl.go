package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

var (
	ErrDialogNotOpen       = errors.New("dialog not open")
	ErrInvalidCategory     = errors.New("invalid vehicle category")
	ErrInvalidAction       = errors.New("invalid dialog action")
	ErrRailTypeUnavailable = errors.New("rail type not available")
	ErrScenarioNotFound    = errors.New("scenario not found")
	ErrInvalidScenario     = errors.New("invalid scenario")
)

// replaceServiceImpl implements the ReplaceService interface
type replaceServiceImpl struct {
	sessions  SessionManager
	scenarios ScenarioManager
	// mu serialises every call; lookups refresh session access times
	mu sync.Mutex
}

// NewReplaceService creates a new replace service instance
func NewReplaceService(sessions SessionManager, scenarios ScenarioManager) ReplaceService {
	return &replaceServiceImpl{
		sessions:  sessions,
		scenarios: scenarios,
	}
}

// CreateSession starts a new game from a scenario; an empty name uses the default scenario
func (s *replaceServiceImpl) CreateSession(ctx context.Context, scenarioName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scenario *catalog.Scenario
	scenarioID := scenarioName
	if scenarioName != "" {
		var err error
		scenario, err = s.scenarios.LoadScenario(scenarioName)
		if err != nil {
			if errors.Is(err, ErrScenarioNotFound) {
				available, listErr := s.scenarios.ListScenarios()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, sc := range available {
						ids = append(ids, sc.ScenarioID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available scenarios: %v", ErrScenarioNotFound, scenarioName, ids)
				}
			}
			return nil, fmt.Errorf("failed to load scenario %s: %w", scenarioName, err)
		}
	} else {
		scenario = s.scenarios.GetDefault()
		scenarioID = scenario.Name
	}

	sess, err := s.sessions.Create("", scenarioID, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("scenario", scenarioID).Msg("session created")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *replaceServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *replaceServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession closes every dialog of a session and removes it
func (s *replaceServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	for cat, d := range sess.Dialogs {
		d.Handle(replace.Close{})
		delete(sess.Dialogs, cat)
	}
	return s.sessions.Delete(sessionID)
}

// OpenDialog opens the replace dialog of a category for a group. A dialog
// already open for the category is closed first.
func (s *replaceServiceImpl) OpenDialog(ctx context.Context, sessionID string, cat catalog.Category, group catalog.GroupID) (*replace.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, cat)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := sess.World.Group(group); !ok {
		return nil, fmt.Errorf("%w: %d", catalog.ErrUnknownGroup, group)
	}

	if old, ok := sess.Dialogs[cat]; ok {
		old.Handle(replace.Close{})
	}
	d := replace.Open(replace.Options{
		Category: cat,
		Owner:    sess.Owner(),
		Group:    group,
	}, sess.World, sess.Commands, sess.Preferences)
	sess.Dialogs[cat] = d

	v := d.Draw()
	return &v, nil
}

// GetView draws the open dialog of a category
func (s *replaceServiceImpl) GetView(ctx context.Context, sessionID string, cat catalog.Category) (*replace.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, _, err := s.dialog(sessionID, cat)
	if err != nil {
		return nil, err
	}
	v := d.Draw()
	return &v, nil
}

// Dispatch applies a dialog action and returns the redrawn dialog
func (s *replaceServiceImpl) Dispatch(ctx context.Context, sessionID string, cat catalog.Category, action Action) (*DialogResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, sess, err := s.dialog(sessionID, cat)
	if err != nil {
		return nil, err
	}

	ev, err := action.Event(cat)
	if err != nil {
		return nil, err
	}
	if sel, ok := ev.(replace.SelectRailType); ok && cat == catalog.Train {
		if !sess.World.AvailableRailTypes(sess.Owner()).Has(sel.RailType) {
			return nil, fmt.Errorf("%w: %s", ErrRailTypeUnavailable, sel.RailType)
		}
	}

	changed := d.Handle(ev)
	log.Debug().
		Str("session", sess.ID).
		Stringer("category", cat).
		Str("action", action.Type).
		Bool("changed", changed).
		Msg("dialog action")

	v := d.Draw()
	return &DialogResult{Changed: changed, View: &v}, nil
}

// CloseDialog disposes the dialog of a category
func (s *replaceServiceImpl) CloseDialog(ctx context.Context, sessionID string, cat catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, sess, err := s.dialog(sessionID, cat)
	if err != nil {
		return err
	}
	d.Handle(replace.Close{})
	delete(sess.Dialogs, cat)
	return nil
}

// ListEngines returns every engine model of a category with the owner's fleet data
func (s *replaceServiceImpl) ListEngines(ctx context.Context, sessionID string, cat catalog.Category) ([]EngineInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, cat)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	owner := sess.Owner()
	engines := sess.World.EnginesOfCategory(cat)
	result := make([]EngineInfo, 0, len(engines))
	for _, e := range engines {
		result = append(result, EngineInfo{
			EngineModel: *e,
			Owned:       sess.World.OwnedCount(owner, catalog.AllGroup, e.ID),
			Replacement: sess.World.ExistingReplacement(owner, e.ID, catalog.DefaultGroup),
		})
	}
	return result, nil
}

// BuyVehicles adds vehicles of an engine model to a group
func (s *replaceServiceImpl) BuyVehicles(ctx context.Context, sessionID string, group catalog.GroupID, engine catalog.EngineID, count int) (*FleetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	n, err := sess.Commands.BuyVehicles(sess.Owner(), group, engine, count)
	if err != nil {
		return nil, err
	}
	return fleetResult(sess, group, engine, n), nil
}

// SellVehicles removes vehicles of an engine model from a group
func (s *replaceServiceImpl) SellVehicles(ctx context.Context, sessionID string, group catalog.GroupID, engine catalog.EngineID, count int) (*FleetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	n, err := sess.Commands.SellVehicles(sess.Owner(), group, engine, count)
	if err != nil {
		return nil, err
	}
	return fleetResult(sess, group, engine, n), nil
}

// IntroduceEngine makes an engine model buildable
func (s *replaceServiceImpl) IntroduceEngine(ctx context.Context, sessionID string, engine catalog.EngineID) (*catalog.EngineModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	e, err := sess.Commands.IntroduceEngine(sess.Owner(), engine)
	if err != nil {
		return nil, err
	}
	model := *e
	return &model, nil
}

// RetireEngine makes an engine model unbuildable
func (s *replaceServiceImpl) RetireEngine(ctx context.Context, sessionID string, engine catalog.EngineID) (*catalog.EngineModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	e, err := sess.Commands.RetireEngine(sess.Owner(), engine)
	if err != nil {
		return nil, err
	}
	model := *e
	return &model, nil
}

// Tick applies the queued dialog commands of one session
func (s *replaceServiceImpl) Tick(ctx context.Context, sessionID string) (*TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return tick(ctx, sess)
}

// TickAll applies the queued dialog commands of every session with pending commands
func (s *replaceServiceImpl) TickAll(ctx context.Context) ([]*TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*TickResult
	for _, sess := range s.sessions.List() {
		if sess.Commands.Pending() == 0 {
			continue
		}
		res, err := tick(ctx, sess)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// GetHistory returns the command and world event history of a session
func (s *replaceServiceImpl) GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	executed, rejected := sess.Commands.Stats()
	return &HistoryResponse{
		Entries:  sess.Commands.History(),
		Executed: executed,
		Rejected: rejected,
	}, nil
}

// ListScenarios returns the available scenario files
func (s *replaceServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// LoadScenario loads a scenario by name
func (s *replaceServiceImpl) LoadScenario(ctx context.Context, scenarioName string) (*catalog.Scenario, error) {
	return s.scenarios.LoadScenario(scenarioName)
}

// SaveScenario validates and stores a scenario
func (s *replaceServiceImpl) SaveScenario(ctx context.Context, scenarioName string, scenario *catalog.Scenario) error {
	if strings.ContainsAny(scenarioName, `/\`) || scenarioName == "" {
		return fmt.Errorf("%w: invalid scenario name %q", ErrInvalidScenario, scenarioName)
	}
	return s.scenarios.SaveScenario(scenarioName, scenario)
}

// session looks up a session and refreshes its access time. Callers hold s.mu.
func (s *replaceServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *replaceServiceImpl) dialog(sessionID string, cat catalog.Category) (*replace.Dialog, *Session, error) {
	if !cat.Valid() {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidCategory, cat)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	d, ok := sess.Dialogs[cat]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrDialogNotOpen, cat)
	}
	return d, sess, nil
}

func tick(ctx context.Context, sess *Session) (*TickResult, error) {
	results, err := sess.Commands.Flush(ctx)

	res := &TickResult{SessionID: sess.ID, Commands: make([]CommandResult, 0, len(results))}
	for _, r := range results {
		cr := CommandResult{Request: r.Request, Applied: r.Err == nil}
		if r.Err != nil {
			cr.Error = r.Err.Error()
			res.Rejected++
		} else {
			res.Executed++
		}
		res.Commands = append(res.Commands, cr)
	}
	if err != nil {
		return res, fmt.Errorf("tick interrupted: %w", err)
	}
	return res, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	open := make([]catalog.Category, 0, len(sess.Dialogs))
	for cat := range sess.Dialogs {
		open = append(open, cat)
	}
	slices.Sort(open)

	return &SessionInfo{
		ID:              sess.ID,
		ScenarioName:    sess.ScenarioID,
		Owner:           sess.Owner(),
		CreatedAt:       sess.CreatedAt,
		LastAccessedAt:  sess.LastAccessedAt,
		DefaultRail:     sess.Preferences.DefaultRailType,
		OpenDialogs:     open,
		PendingCommands: sess.Commands.Pending(),
	}
}

func fleetResult(sess *Session, group catalog.GroupID, engine catalog.EngineID, groupCount int) *FleetResult {
	return &FleetResult{
		Engine:     engine,
		Group:      group,
		GroupCount: groupCount,
		TotalCount: sess.World.OwnedCount(sess.Owner(), catalog.AllGroup, engine),
	}
}
