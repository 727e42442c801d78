package replace

import "github.com/wricardo/mcp-training/autoreplace/game/catalog"

// Event is something the dialog reacts to. Every event is handled by Dialog.Handle.
type Event interface {
	isEvent()
}

// ToggleMode switches the source list between locomotives and wagons (trains only)
type ToggleMode struct{}

// SelectRailType picks a rail type from the dropdown (trains only)
type SelectRailType struct {
	RailType catalog.RailType
}

// ClickRow is a click inside one of the lists; Y is relative to the dialog
type ClickRow struct {
	Side Side
	Y    int
}

// Scroll moves the first visible row of a list
type Scroll struct {
	Side     Side
	Position int
}

// StartReplacing presses the "start replacing" button
type StartReplacing struct{}

// StopReplacing presses the "stop replacing" button
type StopReplacing struct{}

// ToggleKeepLength presses the "keep train length" button (trains only)
type ToggleKeepLength struct{}

// Invalidate tells the dialog that game data behind one list changed
type Invalidate struct {
	Side Side
}

// Resize changes the dialog size by DX, DY pixels
type Resize struct {
	DX, DY int
}

// Close disposes the dialog
type Close struct{}

func (ToggleMode) isEvent()       {}
func (SelectRailType) isEvent()   {}
func (ClickRow) isEvent()         {}
func (Scroll) isEvent()           {}
func (StartReplacing) isEvent()   {}
func (StopReplacing) isEvent()    {}
func (ToggleKeepLength) isEvent() {}
func (Invalidate) isEvent()       {}
func (Resize) isEvent()           {}
func (Close) isEvent()            {}
