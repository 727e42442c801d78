package service

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

// Event converts the action into the dialog event it stands for. Clicks
// address a row either by index (Row) or by dialog coordinate (Y).
func (a Action) Event(cat catalog.Category) (replace.Event, error) {
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case ActionToggleMode:
		return replace.ToggleMode{}, nil
	case ActionSelectRailType:
		rt, err := catalog.ParseRailType(a.RailType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return replace.SelectRailType{RailType: rt}, nil
	case ActionClick:
		sd, err := a.side()
		if err != nil {
			return nil, err
		}
		switch {
		case a.Row != nil:
			if *a.Row < 0 {
				return nil, fmt.Errorf("%w: row must not be negative", ErrInvalidAction)
			}
			return replace.ClickRow{Side: sd, Y: replace.RowY(cat, *a.Row)}, nil
		case a.Y != nil:
			return replace.ClickRow{Side: sd, Y: *a.Y}, nil
		default:
			return nil, fmt.Errorf("%w: click needs a row or a y coordinate", ErrInvalidAction)
		}
	case ActionScroll:
		sd, err := a.side()
		if err != nil {
			return nil, err
		}
		return replace.Scroll{Side: sd, Position: a.Position}, nil
	case ActionStartReplacing:
		return replace.StartReplacing{}, nil
	case ActionStopReplacing:
		return replace.StopReplacing{}, nil
	case ActionToggleKeepLength:
		return replace.ToggleKeepLength{}, nil
	case ActionResize:
		return replace.Resize{DX: a.DX, DY: a.DY}, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid actions: %s)", ErrInvalidAction, a.Type, strings.Join(ActionTypes, ", "))
	}
}

func (a Action) side() (replace.Side, error) {
	sd, err := replace.ParseSide(strings.ToLower(a.Side))
	if err != nil {
		return replace.Source, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return sd, nil
}
