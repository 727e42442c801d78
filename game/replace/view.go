package replace

import (
	"fmt"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

// Info line texts
const (
	InfoNoSelection  = "No vehicle selected"
	InfoNotReplacing = "Not replacing"
)

// View is what a draw of the dialog shows
type View struct {
	Status   Status           `json:"status"`
	Category catalog.Category `json:"category"`
	Group    catalog.GroupID  `json:"group"`

	// Train only
	ShowEngines        *bool              `json:"show_engines,omitempty"`
	RailType           *catalog.RailType  `json:"rail_type,omitempty"`
	AvailableRailTypes []catalog.RailType `json:"available_rail_types,omitempty"`
	KeepLength         *bool              `json:"keep_length,omitempty"`

	Source ListView `json:"source"`
	Target ListView `json:"target"`

	StartEnabled bool `json:"start_enabled"`
	StopEnabled  bool `json:"stop_enabled"`

	// Replacement is the engine the selected source is currently replaced with
	Replacement catalog.EngineID `json:"replacement"`
	Info        string           `json:"info"`
}

// ListView is the visible window of one list
type ListView struct {
	Selected catalog.EngineID `json:"selected"`
	Total    int              `json:"total"`
	Scroll   int              `json:"scroll"`
	Capacity int              `json:"capacity"`
	Rows     []Row            `json:"rows"`
}

// Row is one visible list entry
type Row struct {
	Engine   catalog.EngineID `json:"engine"`
	Name     string           `json:"name"`
	Owned    int              `json:"owned,omitempty"`
	Selected bool             `json:"selected,omitempty"`
}

// List returns the view of one side
func (v *View) List(sd Side) *ListView {
	if sd == Target {
		return &v.Target
	}
	return &v.Source
}

// Draw rebuilds out-of-date lists and returns what the dialog shows
func (d *Dialog) Draw() View {
	if d.closed {
		return View{
			Status:      Closed,
			Category:    d.state.Category,
			Group:       d.state.Group,
			Replacement: catalog.InvalidEngine,
			Source:      ListView{Selected: catalog.InvalidEngine},
			Target:      ListView{Selected: catalog.InvalidEngine},
		}
	}

	if d.state.needsRebuild() {
		d.generateLists()
	}

	st := d.state
	v := View{
		Status:       d.Status(),
		Category:     st.Category,
		Group:        st.Group,
		Source:       d.listView(Source),
		Target:       d.listView(Target),
		StartEnabled: d.CanStartReplacing(),
		StopEnabled:  d.CanStopReplacing(),
		Replacement:  catalog.InvalidEngine,
	}

	if st.Category == catalog.Train {
		showEngines := st.ShowEngines
		railType := st.RailType
		keepLength := d.world.KeepLength(st.Owner)
		v.ShowEngines = &showEngines
		v.RailType = &railType
		v.KeepLength = &keepLength
		v.AvailableRailTypes = d.world.AvailableRailTypes(st.Owner).Slice()
	}

	from := st.Selected(Source)
	switch {
	case from == catalog.InvalidEngine:
		v.Info = InfoNoSelection
	case !d.world.HasReplacement(st.Owner, from, st.Group):
		v.Info = InfoNotReplacing
	default:
		v.Replacement = d.world.ExistingReplacement(st.Owner, from, st.Group)
		v.Info = d.engineName(v.Replacement)
	}

	return v
}

func (d *Dialog) listView(sd Side) ListView {
	st := d.state.side(sd)
	lv := ListView{
		Selected: st.selected,
		Total:    len(st.list),
		Scroll:   st.scroll,
		Capacity: st.capacity,
		Rows:     []Row{},
	}

	end := min(st.scroll+st.capacity, len(st.list))
	for i := st.scroll; i < end; i++ {
		id := st.list[i]
		row := Row{
			Engine:   id,
			Name:     d.engineName(id),
			Selected: id == st.selected,
		}
		if sd == Source {
			row.Owned = d.world.OwnedCount(d.state.Owner, d.state.Group, id)
		}
		lv.Rows = append(lv.Rows, row)
	}
	return lv
}

func (d *Dialog) engineName(id catalog.EngineID) string {
	if e, ok := d.world.Engine(id); ok {
		return e.Name
	}
	return fmt.Sprintf("engine #%d", id)
}
