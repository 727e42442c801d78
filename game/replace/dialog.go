package replace

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

// Status is the lifecycle state of a dialog
type Status uint8

const (
	// Idle means both lists are up to date
	Idle Status = iota
	// NeedsRebuild means at least one list is rebuilt on the next draw
	NeedsRebuild
	// Closed means the dialog was disposed
	Closed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case NeedsRebuild:
		return "needs_rebuild"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{Idle, NeedsRebuild, Closed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown dialog status %q", text)
}

// Options selects what a dialog is opened for
type Options struct {
	Category catalog.Category
	Owner    catalog.OwnerID
	Group    catalog.GroupID
}

// Dialog is the controller of one autoreplace dialog. It is not safe for
// concurrent use; callers serialise events.
type Dialog struct {
	state     *State
	world     World
	commands  Commander
	prefs     *Preferences
	rowHeight int
	closed    bool
}

// Open creates a dialog for a vehicle category and group. Both lists start
// empty and are built on the first Draw.
func Open(opts Options, w World, commands Commander, prefs *Preferences) *Dialog {
	if prefs == nil {
		prefs = NewPreferences()
	}
	rowHeight := RowHeight(opts.Category)
	d := &Dialog{
		state:     NewState(opts.Category, opts.Owner, opts.Group, prefs.DefaultRailType, InitialCapacity(rowHeight)),
		world:     w,
		commands:  commands,
		prefs:     prefs,
		rowHeight: rowHeight,
	}

	log.Debug().
		Stringer("category", opts.Category).
		Uint16("group", uint16(opts.Group)).
		Msg("replace dialog opened")
	return d
}

// State exposes the dialog's selection and filter state for inspection
func (d *Dialog) State() *State {
	return d.state
}

// Category returns the vehicle category the dialog was opened for
func (d *Dialog) Category() catalog.Category {
	return d.state.Category
}

// Group returns the group the dialog was opened for
func (d *Dialog) Group() catalog.GroupID {
	return d.state.Group
}

// Status reports the dialog's lifecycle state
func (d *Dialog) Status() Status {
	switch {
	case d.closed:
		return Closed
	case d.state.needsRebuild():
		return NeedsRebuild
	default:
		return Idle
	}
}

// Handle applies an event and reports whether the dialog needs a redraw.
// Lists are never rebuilt here, only marked; Draw rebuilds them.
func (d *Dialog) Handle(ev Event) bool {
	if d.closed {
		return false
	}

	switch ev := ev.(type) {
	case ToggleMode:
		return d.toggleMode()
	case SelectRailType:
		return d.selectRailType(ev.RailType)
	case ClickRow:
		if !ev.Side.Valid() {
			return false
		}
		return d.clickRow(ev.Side, ev.Y)
	case Scroll:
		if !ev.Side.Valid() {
			return false
		}
		d.state.setScroll(ev.Side, ev.Position)
		return true
	case StartReplacing:
		return d.startReplacing()
	case StopReplacing:
		return d.stopReplacing()
	case ToggleKeepLength:
		return d.toggleKeepLength()
	case Invalidate:
		if !ev.Side.Valid() {
			return false
		}
		d.state.MarkDirty(ev.Side)
		return true
	case Resize:
		d.resize(ev.DY)
		return true
	case Close:
		d.close()
		return false
	default:
		log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("replace dialog ignored unknown event")
		return false
	}
}

func (d *Dialog) toggleMode() bool {
	if d.state.Category != catalog.Train {
		return false
	}
	d.state.ShowEngines = !d.state.ShowEngines
	d.state.MarkDirty(Source)
	d.state.autoSelect = true
	return true
}

func (d *Dialog) selectRailType(rt catalog.RailType) bool {
	if d.state.Category != catalog.Train || !rt.Valid() {
		return false
	}
	if rt == d.state.RailType {
		return false
	}
	d.state.RailType = rt
	d.prefs.DefaultRailType = rt

	for _, sd := range Sides {
		d.state.side(sd).scroll = 0
		d.state.MarkDirty(sd)
	}
	d.state.autoSelect = true
	return true
}

func (d *Dialog) clickRow(sd Side, y int) bool {
	row, ok := rowAt(y, d.rowHeight)
	st := d.state.side(sd)
	if !ok || row >= st.capacity {
		return false
	}

	idx := row + st.scroll
	e := catalog.InvalidEngine
	if idx < len(st.list) {
		e = st.list[idx]
	}
	if e == st.selected {
		return false
	}

	st.selected = e
	if sd == Source {
		d.state.MarkDirty(Target)
		d.state.autoSelect = true
		if e == catalog.InvalidEngine {
			d.state.clearTarget()
		}
	}
	return true
}

func (d *Dialog) startReplacing() bool {
	if !d.CanStartReplacing() {
		return false
	}
	d.commands.Submit(Request{
		Kind:     SetReplacement,
		Owner:    d.state.Owner,
		Category: d.state.Category,
		Group:    d.state.Group,
		From:     d.state.Selected(Source),
		To:       d.state.Selected(Target),
	})
	return true
}

func (d *Dialog) stopReplacing() bool {
	if !d.CanStopReplacing() {
		return false
	}
	d.commands.Submit(Request{
		Kind:     ClearReplacement,
		Owner:    d.state.Owner,
		Category: d.state.Category,
		Group:    d.state.Group,
		From:     d.state.Selected(Source),
		To:       catalog.InvalidEngine,
	})
	return true
}

func (d *Dialog) toggleKeepLength() bool {
	if d.state.Category != catalog.Train {
		return false
	}
	d.commands.Submit(Request{
		Kind:       SetKeepLength,
		Owner:      d.state.Owner,
		Category:   d.state.Category,
		KeepLength: !d.world.KeepLength(d.state.Owner),
	})
	return true
}

func (d *Dialog) resize(dy int) {
	delta := dy / d.rowHeight
	for _, sd := range Sides {
		st := d.state.side(sd)
		st.capacity = max(st.capacity+delta, 1)
		d.state.setScroll(sd, st.scroll)
	}
}

func (d *Dialog) close() {
	d.state.release()
	d.closed = true
	log.Debug().Stringer("category", d.state.Category).Msg("replace dialog closed")
}

// CanStartReplacing reports whether the "start replacing" button is enabled:
// both sides have a selection, the target is not itself being replaced, and
// the target is not already the source's replacement.
func (d *Dialog) CanStartReplacing() bool {
	from, to := d.state.Selected(Source), d.state.Selected(Target)
	if from == catalog.InvalidEngine || to == catalog.InvalidEngine {
		return false
	}
	owner, group := d.state.Owner, d.state.Group
	if d.world.ExistingReplacement(owner, to, group) != catalog.InvalidEngine {
		return false
	}
	return d.world.ExistingReplacement(owner, from, group) != to
}

// CanStopReplacing reports whether the "stop replacing" button is enabled
func (d *Dialog) CanStopReplacing() bool {
	from := d.state.Selected(Source)
	if from == catalog.InvalidEngine {
		return false
	}
	return d.world.HasReplacement(d.state.Owner, from, d.state.Group)
}

// generateLists rebuilds whatever is out of date. The target list follows
// the source selection: it is rebuilt whenever the source selection differs
// from the one it was built for, and emptied while nothing is selected.
func (d *Dialog) generateLists() {
	st := d.state
	src, tgt := st.side(Source), st.side(Target)

	if src.dirty {
		src.list, src.selected = RebuildList(Source, st, d.world)
		if st.autoSelect && src.selected == catalog.InvalidEngine && len(src.list) > 0 {
			src.selected = src.list[0]
		}
		st.setScroll(Source, src.scroll)
		d.logRebuild(Source)
	}

	if tgt.dirty || st.targetBuiltFor != src.selected {
		if src.selected == catalog.InvalidEngine {
			st.clearTarget()
		} else {
			tgt.list, tgt.selected = RebuildList(Target, st, d.world)
			if st.autoSelect && tgt.selected == catalog.InvalidEngine && len(tgt.list) > 0 {
				tgt.selected = tgt.list[0]
			}
		}
		st.targetBuiltFor = src.selected
		st.setScroll(Target, tgt.scroll)
		d.logRebuild(Target)
	}

	src.dirty = false
	tgt.dirty = false
	st.autoSelect = false
}

func (d *Dialog) logRebuild(sd Side) {
	st := d.state.side(sd)
	log.Debug().
		Stringer("category", d.state.Category).
		Stringer("side", sd).
		Int("count", len(st.list)).
		Uint16("selected", uint16(st.selected)).
		Msg("replace list rebuilt")
}
