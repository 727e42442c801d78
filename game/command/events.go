package command

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

// BuyVehicles adds count vehicles of engine to group and returns the new
// group count. The source list is invalidated when the engine was not owned
// in the group or the company before the purchase.
func (x *Executor) BuyVehicles(owner catalog.OwnerID, group catalog.GroupID, engine catalog.EngineID, count int) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	action := fmt.Sprintf("buy(group=%d, engine=%d, count=%d)", group, engine, count)
	if count <= 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidCount, count)
		x.record(action, err)
		return 0, err
	}
	e, ok := x.world.Engine(engine)
	if !ok {
		err := fmt.Errorf("%w: %d", catalog.ErrUnknownEngine, engine)
		x.record(action, err)
		return 0, err
	}

	firstOfModel := x.world.OwnedCount(owner, group, engine) == 0 ||
		x.world.OwnedCount(owner, catalog.AllGroup, engine) == 0

	n, err := x.world.AddVehicles(owner, group, engine, count)
	x.record(action, err)
	if err != nil {
		return 0, err
	}
	if firstOfModel && x.windows != nil {
		x.windows.Invalidate(owner, e.Category, replace.Source)
	}
	log.Info().Uint16("engine", uint16(engine)).Uint16("group", uint16(group)).Int("count", n).Msg("vehicles bought")
	return n, nil
}

// SellVehicles removes up to count vehicles of engine from group and returns
// the new group count. The source list is invalidated when the last vehicle
// of the group or the company is gone.
func (x *Executor) SellVehicles(owner catalog.OwnerID, group catalog.GroupID, engine catalog.EngineID, count int) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	action := fmt.Sprintf("sell(group=%d, engine=%d, count=%d)", group, engine, count)
	if count <= 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidCount, count)
		x.record(action, err)
		return 0, err
	}
	e, ok := x.world.Engine(engine)
	if !ok {
		err := fmt.Errorf("%w: %d", catalog.ErrUnknownEngine, engine)
		x.record(action, err)
		return 0, err
	}

	n, err := x.world.AddVehicles(owner, group, engine, -count)
	x.record(action, err)
	if err != nil {
		return 0, err
	}

	x.invalidateSource(owner, e.Category, group, engine)
	log.Info().Uint16("engine", uint16(engine)).Uint16("group", uint16(group)).Int("count", n).Msg("vehicles sold")
	return n, nil
}

// IntroduceEngine makes an engine model buildable and refreshes the target
// list of its category
func (x *Executor) IntroduceEngine(owner catalog.OwnerID, engine catalog.EngineID) (*catalog.EngineModel, error) {
	return x.setBuildable(owner, engine, true)
}

// RetireEngine makes an engine model unbuildable and refreshes the target
// list of its category
func (x *Executor) RetireEngine(owner catalog.OwnerID, engine catalog.EngineID) (*catalog.EngineModel, error) {
	return x.setBuildable(owner, engine, false)
}

func (x *Executor) setBuildable(owner catalog.OwnerID, engine catalog.EngineID, buildable bool) (*catalog.EngineModel, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	action := fmt.Sprintf("retire(engine=%d)", engine)
	if buildable {
		action = fmt.Sprintf("introduce(engine=%d)", engine)
	}

	e, err := x.world.SetBuildable(engine, buildable)
	x.record(action, err)
	if err != nil {
		return nil, err
	}

	x.invalidateTarget(owner, e.Category)
	log.Info().Uint16("engine", uint16(engine)).Bool("buildable", buildable).Msg("engine availability changed")
	return e, nil
}
