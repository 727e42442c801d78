package replace

import (
	"slices"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

// sideState is everything one list of the dialog owns
type sideState struct {
	selected catalog.EngineID
	list     []catalog.EngineID
	dirty    bool

	scroll   int
	capacity int
}

// State is the selection and filter record of one dialog
type State struct {
	Category catalog.Category
	Owner    catalog.OwnerID
	Group    catalog.GroupID

	// ShowEngines lists locomotives when true and wagons when false (trains only)
	ShowEngines bool
	RailType    catalog.RailType

	sides [2]sideState

	// autoSelect makes the next rebuild of an empty-selection side pick its first entry
	autoSelect bool

	// targetBuiltFor is the source selection the target list was last built for
	targetBuiltFor catalog.EngineID
}

// NewState returns the state of a freshly opened dialog
func NewState(cat catalog.Category, owner catalog.OwnerID, group catalog.GroupID, railType catalog.RailType, capacity int) *State {
	s := &State{
		Category:       cat,
		Owner:          owner,
		Group:          group,
		ShowEngines:    true,
		RailType:       railType,
		autoSelect:     true,
		targetBuiltFor: catalog.InvalidEngine,
	}
	for i := range s.sides {
		s.sides[i] = sideState{
			selected: catalog.InvalidEngine,
			dirty:    true,
			capacity: capacity,
		}
	}
	return s
}

func (s *State) side(sd Side) *sideState {
	return &s.sides[sd]
}

// Selected returns the selected engine of a side, or InvalidEngine
func (s *State) Selected(sd Side) catalog.EngineID {
	return s.side(sd).selected
}

// List returns a copy of a side's candidate list
func (s *State) List(sd Side) []catalog.EngineID {
	return slices.Clone(s.side(sd).list)
}

// Dirty reports whether a side waits for a rebuild
func (s *State) Dirty(sd Side) bool {
	return s.side(sd).dirty
}

// Scroll returns the index of the first visible row of a side
func (s *State) Scroll(sd Side) int {
	return s.side(sd).scroll
}

// Capacity returns the number of visible rows of a side
func (s *State) Capacity(sd Side) int {
	return s.side(sd).capacity
}

// MarkDirty schedules a rebuild of a side for the next draw
func (s *State) MarkDirty(sd Side) {
	s.side(sd).dirty = true
}

// needsRebuild reports whether the next draw has lists to regenerate
func (s *State) needsRebuild() bool {
	return s.sides[Source].dirty || s.sides[Target].dirty ||
		s.targetBuiltFor != s.sides[Source].selected
}

// setScroll moves a side's first visible row, clamped to the list
func (s *State) setScroll(sd Side, pos int) {
	st := s.side(sd)
	maxPos := len(st.list) - st.capacity
	if maxPos < 0 {
		maxPos = 0
	}
	st.scroll = min(max(pos, 0), maxPos)
}

// clearTarget empties the target side while nothing is selected on the source side
func (s *State) clearTarget() {
	tgt := s.side(Target)
	tgt.list = nil
	tgt.selected = catalog.InvalidEngine
	tgt.scroll = 0
	s.targetBuiltFor = catalog.InvalidEngine
}

// release drops both lists
func (s *State) release() {
	for i := range s.sides {
		s.sides[i].list = nil
		s.sides[i].selected = catalog.InvalidEngine
		s.sides[i].dirty = false
	}
	s.targetBuiltFor = catalog.InvalidEngine
}
