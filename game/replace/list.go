package replace

import (
	"cmp"
	"slices"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

// RebuildList regenerates the candidate list of one side from the catalog and
// the current filters. It returns the new list and the side's selection,
// which is kept if still listed and InvalidEngine otherwise. It does not
// modify st.
func RebuildList(sd Side, st *State, w World) ([]catalog.EngineID, catalog.EngineID) {
	prev := st.Selected(sd)

	var source *catalog.EngineModel
	if sd == Target {
		e, ok := w.Engine(st.Selected(Source))
		if !ok {
			// nothing to replace into without a source
			return nil, catalog.InvalidEngine
		}
		source = e
	}

	var list []catalog.EngineID
	selected := catalog.InvalidEngine
	for _, e := range w.EnginesOfCategory(st.Category) {
		if !belongs(sd, e, source, st, w) {
			continue
		}
		list = append(list, e.ID)
		if e.ID == prev {
			selected = e.ID
		}
	}

	if st.Category == catalog.Train {
		slices.SortStableFunc(list, func(a, b catalog.EngineID) int {
			return cmp.Compare(w.ListPosition(a), w.ListPosition(b))
		})
	}

	return list, selected
}

func belongs(sd Side, e, source *catalog.EngineModel, st *State, w World) bool {
	if st.Category == catalog.Train {
		if sd == Source && !BelongsInSourceList(e, st.ShowEngines, st.RailType, w) {
			return false
		}
		if sd == Target && !BelongsInTargetList(e, st.ShowEngines, st.RailType, w) {
			return false
		}
	}

	if sd == Source {
		// neither owned nor already set up for replacement: nothing to replace
		if w.OwnedCount(st.Owner, st.Group, e.ID) == 0 &&
			w.ExistingReplacement(st.Owner, e.ID, st.Group) == catalog.InvalidEngine {
			return false
		}
		return true
	}

	if !IsBuildableBySourceMode(w, e, st.Owner) {
		return false
	}
	if !CargoCompatible(e, source) {
		return false
	}
	if st.Category == catalog.Road && e.Tram != source.Tram {
		return false
	}
	// replacing an engine with itself is autorenew, not autoreplace
	return e.ID != source.ID
}
