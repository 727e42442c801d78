package replace

import (
	"fmt"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

// Catalog answers read-only questions about engine models
type Catalog interface {
	EnginesOfCategory(cat catalog.Category) []*catalog.EngineModel
	Engine(id catalog.EngineID) (*catalog.EngineModel, bool)
	ListPosition(id catalog.EngineID) int
	IsBuildable(id catalog.EngineID, cat catalog.Category, owner catalog.OwnerID) bool
}

// Registry answers questions about an owner's fleet and replacement rules
type Registry interface {
	OwnedCount(owner catalog.OwnerID, group catalog.GroupID, engine catalog.EngineID) int
	ExistingReplacement(owner catalog.OwnerID, engine catalog.EngineID, group catalog.GroupID) catalog.EngineID
	HasReplacement(owner catalog.OwnerID, engine catalog.EngineID, group catalog.GroupID) bool
	KeepLength(owner catalog.OwnerID) bool
	AvailableRailTypes(owner catalog.OwnerID) catalog.RailTypeSet
}

// RailCompatibility decides whether an engine of one rail type can run on another
type RailCompatibility interface {
	IsCompatible(engineType, trackType catalog.RailType) bool
}

// World bundles every read-only collaborator of the dialog
type World interface {
	Catalog
	Registry
	RailCompatibility
}

// Commander accepts requests for asynchronous execution. Effects are only
// observed later, through Invalidate events.
type Commander interface {
	Submit(req Request)
}

// RequestKind selects what a Request asks for
type RequestKind uint8

const (
	SetReplacement RequestKind = iota + 1
	ClearReplacement
	SetKeepLength
)

func (k RequestKind) String() string {
	switch k {
	case SetReplacement:
		return "set-replacement"
	case ClearReplacement:
		return "clear-replacement"
	case SetKeepLength:
		return "set-keep-length"
	default:
		return fmt.Sprintf("request(%d)", uint8(k))
	}
}

// Request is a command issued by the dialog
type Request struct {
	Kind       RequestKind      `json:"kind"`
	Owner      catalog.OwnerID  `json:"owner"`
	Category   catalog.Category `json:"category"`
	Group      catalog.GroupID  `json:"group,omitempty"`
	From       catalog.EngineID `json:"from,omitempty"`
	To         catalog.EngineID `json:"to,omitempty"`
	KeepLength bool             `json:"keep_length,omitempty"`
}

func (r Request) String() string {
	switch r.Kind {
	case SetReplacement:
		return fmt.Sprintf("%s(group=%d, from=%d, to=%d)", r.Kind, r.Group, r.From, r.To)
	case ClearReplacement:
		return fmt.Sprintf("%s(group=%d, from=%d)", r.Kind, r.Group, r.From)
	case SetKeepLength:
		return fmt.Sprintf("%s(%t)", r.Kind, r.KeepLength)
	default:
		return r.Kind.String()
	}
}

// Preferences is session-wide dialog state that outlives a single dialog
type Preferences struct {
	// DefaultRailType seeds the rail type of every newly opened train dialog
	// and follows the last rail type picked in any of them.
	DefaultRailType catalog.RailType
}

// NewPreferences returns the preferences a new game starts with
func NewPreferences() *Preferences {
	return &Preferences{DefaultRailType: catalog.Rail}
}
