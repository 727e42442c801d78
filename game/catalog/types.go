package catalog

import (
	"fmt"
	"strings"
)

// EngineID identifies an engine model in the registry
type EngineID uint16

// InvalidEngine marks "no engine" in selections and replacement rules
const InvalidEngine EngineID = 0xFFFF

// GroupID identifies a vehicle group of an owner
type GroupID uint16

const (
	// AllGroup addresses every vehicle of the owner, regardless of group
	AllGroup GroupID = 0xFFFD
	// DefaultGroup holds vehicles that were never put into a group
	DefaultGroup GroupID = 0xFFFE
	// InvalidGroup marks "no group"
	InvalidGroup GroupID = 0xFFFF
)

// OwnerID identifies a company
type OwnerID uint8

// Category is the vehicle category an engine model belongs to
type Category uint8

const (
	Train Category = iota
	Road
	Ship
	Aircraft
)

var categoryNames = [...]string{"train", "road", "ship", "aircraft"}

// Categories lists every vehicle category in display order
var Categories = []Category{Train, Road, Ship, Aircraft}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a category name such as "train" or "aircraft"
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}

// EngineModel is a buildable vehicle model as known to the engine registry
type EngineModel struct {
	ID       EngineID `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Category Category `json:"category" yaml:"category"`

	// Rail only
	RailType RailType `json:"rail_type,omitempty" yaml:"rail_type,omitempty"`
	Wagon    bool     `json:"wagon,omitempty" yaml:"wagon,omitempty"`

	// Road only
	Tram bool `json:"tram,omitempty" yaml:"tram,omitempty"`

	Cargo    CargoID   `json:"cargo" yaml:"cargo"`
	Capacity int       `json:"capacity" yaml:"capacity"`
	Refits   []CargoID `json:"refits,omitempty" yaml:"refits,omitempty"`

	// ListPosition is the game-wide ordering key used by every engine list
	ListPosition int `json:"list_position" yaml:"list_position"`

	// Buildable reports whether the model is currently introduced and not retired
	Buildable bool `json:"buildable" yaml:"buildable"`
}

// RefitMask returns the set of cargos the engine can be refitted to
func (e *EngineModel) RefitMask() CargoMask {
	var mask CargoMask
	for _, c := range e.Refits {
		mask = mask.With(c)
	}
	return mask
}

// CanRefitTo reports whether the engine can carry cargo c after a refit
func (e *EngineModel) CanRefitTo(c CargoID) bool {
	return e.RefitMask().Has(c)
}

// IsLocomotive reports whether the engine is a powered rail vehicle
func (e *EngineModel) IsLocomotive() bool {
	return e.Category == Train && !e.Wagon
}

// Group is a named vehicle group of the owner
type Group struct {
	ID   GroupID `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`

	// ReplaceProtection stops company-wide replacement rules from applying to this group
	ReplaceProtection bool `json:"replace_protection,omitempty" yaml:"replace_protection,omitempty"`
}

// FleetEntry records how many vehicles of an engine model a group holds
type FleetEntry struct {
	Group  GroupID  `json:"group" yaml:"group"`
	Engine EngineID `json:"engine" yaml:"engine"`
	Count  int      `json:"count" yaml:"count"`
}

// ReplacementRule maps a source engine model to its replacement within a group
type ReplacementRule struct {
	Group GroupID  `json:"group" yaml:"group"`
	From  EngineID `json:"from" yaml:"from"`
	To    EngineID `json:"to" yaml:"to"`
}
