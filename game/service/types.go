package service

import (
	"time"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/command"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

// SessionInfo provides information about a replace session
type SessionInfo struct {
	ID              string             `json:"id"`
	ScenarioName    string             `json:"scenario_name"`
	Owner           catalog.OwnerID    `json:"owner"`
	CreatedAt       time.Time          `json:"created_at"`
	LastAccessedAt  time.Time          `json:"last_accessed_at"`
	DefaultRail     catalog.RailType   `json:"default_rail_type"`
	OpenDialogs     []catalog.Category `json:"open_dialogs"`
	PendingCommands int                `json:"pending_commands"`
}

// DialogResult is returned by every dialog action
type DialogResult struct {
	// Changed reports whether the action had any effect on the dialog
	Changed bool          `json:"changed"`
	View    *replace.View `json:"view"`
}

// Action is the wire form of a dialog event
type Action struct {
	Type     string `json:"action"`
	Side     string `json:"side,omitempty"`
	Row      *int   `json:"row,omitempty"`
	Y        *int   `json:"y,omitempty"`
	Position int    `json:"position,omitempty"`
	RailType string `json:"rail_type,omitempty"`
	DX       int    `json:"dx,omitempty"`
	DY       int    `json:"dy,omitempty"`
}

// Action types
const (
	ActionToggleMode       = "toggle_mode"
	ActionSelectRailType   = "select_rail_type"
	ActionClick            = "click"
	ActionScroll           = "scroll"
	ActionStartReplacing   = "start_replacing"
	ActionStopReplacing    = "stop_replacing"
	ActionToggleKeepLength = "toggle_keep_length"
	ActionResize           = "resize"
)

// ActionTypes lists every accepted action type
var ActionTypes = []string{
	ActionToggleMode,
	ActionSelectRailType,
	ActionClick,
	ActionScroll,
	ActionStartReplacing,
	ActionStopReplacing,
	ActionToggleKeepLength,
	ActionResize,
}

// FleetResult is returned by vehicle purchases and sales
type FleetResult struct {
	Engine     catalog.EngineID `json:"engine"`
	Group      catalog.GroupID  `json:"group"`
	GroupCount int              `json:"group_count"`
	TotalCount int              `json:"total_count"`
}

// TickResult reports what one simulation tick applied
type TickResult struct {
	SessionID string          `json:"session_id"`
	Executed  int             `json:"executed"`
	Rejected  int             `json:"rejected"`
	Commands  []CommandResult `json:"commands"`
}

// CommandResult is the outcome of one dialog command
type CommandResult struct {
	Request replace.Request `json:"request"`
	Applied bool            `json:"applied"`
	Error   string          `json:"error,omitempty"`
}

// EngineInfo describes an engine model together with the session owner's fleet
type EngineInfo struct {
	catalog.EngineModel
	// Owned counts the whole company
	Owned int `json:"owned"`
	// Replacement applies to ungrouped vehicles
	Replacement catalog.EngineID `json:"replacement"`
}

// HistoryResponse contains the command history of a session
type HistoryResponse struct {
	Entries  []command.HistoryEntry `json:"entries"`
	Executed int                    `json:"executed"`
	Rejected int                    `json:"rejected"`
}

// ScenarioInfo provides information about a scenario file
type ScenarioInfo struct {
	Filename    string `json:"filename"`
	ScenarioID  string `json:"scenario_id"` // The identifier to use for session creation
	Name        string `json:"name"`        // Display name
	Description string `json:"description"`
	Engines     int    `json:"engines"`
	Vehicles    int    `json:"vehicles"`
}
