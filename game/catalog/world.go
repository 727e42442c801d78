package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrUnknownGroup  = errors.New("unknown group")
)

type fleetKey struct {
	owner  OwnerID
	group  GroupID
	engine EngineID
}

type ruleKey struct {
	owner  OwnerID
	group  GroupID
	engine EngineID
}

// World is the in-memory engine registry together with the fleet and
// replacement rules of every company in a scenario. Reads are safe for
// concurrent use; mutations go through the command executor.
type World struct {
	mu sync.RWMutex

	engines map[EngineID]*EngineModel
	order   []EngineID // ascending engine id, the registry iteration order
	groups  map[GroupID]Group

	fleet      map[fleetKey]int
	totals     map[ruleKey]int // per owner and engine; group is unused
	rules      map[ruleKey]EngineID
	keepLength map[OwnerID]bool
	railTypes  map[OwnerID]RailTypeSet
}

// NewWorld builds a world from a validated scenario
func NewWorld(s *Scenario) (*World, error) {
	if err := ValidateScenario(s); err != nil {
		return nil, err
	}

	w := &World{
		engines:    make(map[EngineID]*EngineModel, len(s.Engines)),
		order:      make([]EngineID, 0, len(s.Engines)),
		groups:     make(map[GroupID]Group, len(s.Groups)+1),
		fleet:      make(map[fleetKey]int),
		totals:     make(map[ruleKey]int),
		rules:      make(map[ruleKey]EngineID),
		keepLength: map[OwnerID]bool{s.Owner: s.KeepLength},
		railTypes:  make(map[OwnerID]RailTypeSet),
	}

	for i := range s.Engines {
		e := s.Engines[i]
		e.Refits = append([]CargoID(nil), e.Refits...)
		w.engines[e.ID] = &e
		w.order = append(w.order, e.ID)
	}
	sort.Slice(w.order, func(i, j int) bool { return w.order[i] < w.order[j] })

	w.groups[DefaultGroup] = Group{ID: DefaultGroup, Name: "Ungrouped"}
	for _, g := range s.Groups {
		w.groups[g.ID] = g
	}

	for _, f := range s.Fleet {
		w.fleet[fleetKey{owner: s.Owner, group: f.Group, engine: f.Engine}] += f.Count
		w.totals[ruleKey{owner: s.Owner, engine: f.Engine}] += f.Count
	}
	for _, r := range s.Replacements {
		w.rules[ruleKey{owner: s.Owner, group: r.Group, engine: r.From}] = r.To
	}

	var avail RailTypeSet
	for _, r := range s.AvailableRailTypes {
		avail = avail.With(r)
	}
	w.railTypes[s.Owner] = avail

	return w, nil
}

// EnginesOfCategory returns the engines of a category in registry order
func (w *World) EnginesOfCategory(cat Category) []*EngineModel {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []*EngineModel
	for _, id := range w.order {
		if e := w.engines[id]; e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// Engine looks up an engine model
func (w *World) Engine(id EngineID) (*EngineModel, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.engines[id]
	return e, ok
}

// ListPosition returns the canonical ordering key of an engine.
// Unknown engines sort last.
func (w *World) ListPosition(id EngineID) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if e, ok := w.engines[id]; ok {
		return e.ListPosition
	}
	return int(^uint(0) >> 1)
}

// IsBuildable reports whether owner can currently build the engine as a vehicle of cat
func (w *World) IsBuildable(id EngineID, cat Category, owner OwnerID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.engines[id]
	if !ok || e.Category != cat || !e.Buildable {
		return false
	}
	if cat == Train && !w.railTypes[owner].Has(e.RailType) {
		return false
	}
	return true
}

// IsCompatible reports whether engines of engineType can run on trackType
func (w *World) IsCompatible(engineType, trackType RailType) bool {
	return IsCompatibleRail(engineType, trackType)
}

// OwnedCount returns how many vehicles of engine the owner has in group.
// AllGroup counts the whole company.
func (w *World) OwnedCount(owner OwnerID, group GroupID, engine EngineID) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if group == AllGroup {
		return w.totals[ruleKey{owner: owner, engine: engine}]
	}
	return w.fleet[fleetKey{owner: owner, group: group, engine: engine}]
}

// ExistingReplacement returns the replacement configured for engine in group,
// or InvalidEngine. Groups without replace protection fall back to the
// company-wide rule.
func (w *World) ExistingReplacement(owner OwnerID, engine EngineID, group GroupID) EngineID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.replacementLocked(owner, engine, group)
}

func (w *World) replacementLocked(owner OwnerID, engine EngineID, group GroupID) EngineID {
	if to, ok := w.rules[ruleKey{owner: owner, group: group, engine: engine}]; ok {
		return to
	}
	if group == AllGroup {
		return InvalidEngine
	}
	if g, ok := w.groups[group]; ok && !g.ReplaceProtection {
		if to, ok := w.rules[ruleKey{owner: owner, group: AllGroup, engine: engine}]; ok {
			return to
		}
	}
	return InvalidEngine
}

// HasReplacement reports whether engine has a replacement configured in group
func (w *World) HasReplacement(owner OwnerID, engine EngineID, group GroupID) bool {
	return w.ExistingReplacement(owner, engine, group) != InvalidEngine
}

// KeepLength reports the owner's "keep train length when replacing" option
func (w *World) KeepLength(owner OwnerID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.keepLength[owner]
}

// AvailableRailTypes returns the rail types the owner may build on
func (w *World) AvailableRailTypes(owner OwnerID) RailTypeSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.railTypes[owner]
}

// Group returns a group by id
func (w *World) Group(id GroupID) (Group, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if id == AllGroup {
		return Group{ID: AllGroup, Name: "All vehicles"}, true
	}
	g, ok := w.groups[id]
	return g, ok
}

// SetReplacement stores a rule replacing from with to in group
func (w *World) SetReplacement(owner OwnerID, group GroupID, from, to EngineID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkGroupLocked(group); err != nil {
		return err
	}
	src, ok := w.engines[from]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEngine, from)
	}
	dst, ok := w.engines[to]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEngine, to)
	}
	if err := CheckReplacementPair(src, dst); err != nil {
		return err
	}
	w.rules[ruleKey{owner: owner, group: group, engine: from}] = to
	return nil
}

// ClearReplacement removes the rule for from in group. Removing a rule that
// does not exist is not an error.
func (w *World) ClearReplacement(owner OwnerID, group GroupID, from EngineID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkGroupLocked(group); err != nil {
		return err
	}
	if _, ok := w.engines[from]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEngine, from)
	}
	delete(w.rules, ruleKey{owner: owner, group: group, engine: from})
	return nil
}

// SetKeepLength stores the owner's keep-length option
func (w *World) SetKeepLength(owner OwnerID, keep bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keepLength[owner] = keep
}

// AddVehicles changes the number of vehicles of engine in group by delta and
// returns the new group count. Counts never drop below zero.
func (w *World) AddVehicles(owner OwnerID, group GroupID, engine EngineID, delta int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if group == AllGroup {
		return 0, fmt.Errorf("%w: vehicles cannot be added to the all-vehicles group", ErrUnknownGroup)
	}
	if err := w.checkGroupLocked(group); err != nil {
		return 0, err
	}
	if _, ok := w.engines[engine]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownEngine, engine)
	}

	key := fleetKey{owner: owner, group: group, engine: engine}
	count := w.fleet[key]
	if count+delta < 0 {
		delta = -count
	}
	w.fleet[key] = count + delta
	w.totals[ruleKey{owner: owner, engine: engine}] += delta
	return w.fleet[key], nil
}

// SetBuildable introduces or retires an engine model
func (w *World) SetBuildable(id EngineID, buildable bool) (*EngineModel, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.engines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEngine, id)
	}
	e.Buildable = buildable
	return e, nil
}

func (w *World) checkGroupLocked(group GroupID) error {
	if group == AllGroup {
		return nil
	}
	if _, ok := w.groups[group]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownGroup, group)
	}
	return nil
}
