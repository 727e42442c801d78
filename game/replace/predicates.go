package replace

import "github.com/wricardo/mcp-training/autoreplace/game/catalog"

// BelongsInSourceList decides whether a rail engine may appear in the source
// list. The wagon/locomotive kind must match the mode. Source locomotives
// must run on exactly the selected rail type; source wagons only need to be
// able to run on it.
func BelongsInSourceList(e *catalog.EngineModel, showEngines bool, railType catalog.RailType, rails RailCompatibility) bool {
	if e.Wagon == showEngines {
		return false
	}
	if showEngines {
		return e.RailType == railType
	}
	return rails.IsCompatible(e.RailType, railType)
}

// BelongsInTargetList decides whether a rail engine may appear in the target
// list. The wagon/locomotive kind must match the mode and the engine must be
// able to run on the selected rail type, which lets a locomotive be replaced
// by one that runs on more track types.
func BelongsInTargetList(e *catalog.EngineModel, showEngines bool, railType catalog.RailType, rails RailCompatibility) bool {
	if e.Wagon == showEngines {
		return false
	}
	return rails.IsCompatible(e.RailType, railType)
}

// EffectiveCargo returns the cargo an engine carries when bought, or
// InvalidCargo for no engine or an engine without capacity. Aircraft are
// always built for passengers.
func EffectiveCargo(e *catalog.EngineModel) catalog.CargoID {
	if e == nil {
		return catalog.InvalidCargo
	}
	if e.Category == catalog.Aircraft {
		return catalog.Passengers
	}
	if e.Capacity == 0 {
		return catalog.InvalidCargo
	}
	return e.Cargo
}

// CargoCompatible reports whether two engines have at least one cargo in
// common, refitting if needed. An engine that carries nothing is compatible
// with everything.
func CargoCompatible(a, b *catalog.EngineModel) bool {
	ca, cb := EffectiveCargo(a), EffectiveCargo(b)
	if ca == catalog.InvalidCargo || cb == catalog.InvalidCargo || ca == cb {
		return true
	}
	if a.RefitMask().Intersects(b.RefitMask()) {
		return true
	}
	return a.CanRefitTo(cb) || b.CanRefitTo(ca)
}

// IsBuildableBySourceMode reports whether owner can build e as a vehicle of its category
func IsBuildableBySourceMode(c Catalog, e *catalog.EngineModel, owner catalog.OwnerID) bool {
	return c.IsBuildable(e.ID, e.Category, owner)
}
