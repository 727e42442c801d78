package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validation limits
const (
	MaxEngines = 512
	MaxGroups  = 64
)

// Scenario is a snapshot of the engine registry and one company's fleet,
// loaded from a JSON or YAML file
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	Owner              OwnerID    `json:"owner" yaml:"owner"`
	AvailableRailTypes []RailType `json:"available_rail_types,omitempty" yaml:"available_rail_types,omitempty"`
	KeepLength         bool       `json:"keep_length,omitempty" yaml:"keep_length,omitempty"`

	Engines      []EngineModel     `json:"engines" yaml:"engines"`
	Groups       []Group           `json:"groups,omitempty" yaml:"groups,omitempty"`
	Fleet        []FleetEntry      `json:"fleet,omitempty" yaml:"fleet,omitempty"`
	Replacements []ReplacementRule `json:"replacements,omitempty" yaml:"replacements,omitempty"`
}

// ValidateScenario checks a scenario for internal consistency
func ValidateScenario(s *Scenario) error {
	if s == nil {
		return fmt.Errorf("scenario validation: scenario is nil")
	}
	if s.Name == "" {
		return fmt.Errorf("scenario validation: name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario validation: description is required")
	}
	if len(s.Engines) == 0 {
		return fmt.Errorf("scenario validation: at least one engine is required")
	}
	if len(s.Engines) > MaxEngines {
		return fmt.Errorf("scenario validation: at most %d engines are allowed, got %d", MaxEngines, len(s.Engines))
	}
	if len(s.Groups) > MaxGroups {
		return fmt.Errorf("scenario validation: at most %d groups are allowed, got %d", MaxGroups, len(s.Groups))
	}

	engines := make(map[EngineID]*EngineModel, len(s.Engines))
	hasTrains := false
	for i := range s.Engines {
		e := &s.Engines[i]
		if e.ID == InvalidEngine {
			return fmt.Errorf("scenario validation: engine #%d uses the reserved id %d", i+1, InvalidEngine)
		}
		if _, dup := engines[e.ID]; dup {
			return fmt.Errorf("scenario validation: duplicate engine id %d", e.ID)
		}
		if e.Name == "" {
			return fmt.Errorf("scenario validation: engine %d has no name", e.ID)
		}
		if !e.Category.Valid() {
			return fmt.Errorf("scenario validation: engine %d has unknown category %d", e.ID, e.Category)
		}
		if e.Capacity < 0 {
			return fmt.Errorf("scenario validation: engine %d has negative capacity %d", e.ID, e.Capacity)
		}
		if e.Cargo != InvalidCargo && !e.Cargo.Valid() {
			return fmt.Errorf("scenario validation: engine %d carries unknown cargo %d", e.ID, e.Cargo)
		}
		switch e.Category {
		case Train:
			hasTrains = true
			if !e.RailType.Valid() {
				return fmt.Errorf("scenario validation: train engine %d has unknown rail type %d", e.ID, e.RailType)
			}
			if e.Tram {
				return fmt.Errorf("scenario validation: train engine %d cannot be a tram", e.ID)
			}
		case Road:
			if e.Wagon {
				return fmt.Errorf("scenario validation: road vehicle %d cannot be a wagon", e.ID)
			}
		default:
			if e.Wagon || e.Tram {
				return fmt.Errorf("scenario validation: %s engine %d cannot be a wagon or tram", e.Category, e.ID)
			}
		}
		engines[e.ID] = e
	}

	if hasTrains && len(s.AvailableRailTypes) == 0 {
		return fmt.Errorf("scenario validation: available_rail_types is required when trains are present")
	}
	for _, r := range s.AvailableRailTypes {
		if !r.Valid() {
			return fmt.Errorf("scenario validation: unknown available rail type %d", r)
		}
	}

	groups := map[GroupID]bool{DefaultGroup: true, AllGroup: true}
	for _, g := range s.Groups {
		if g.ID == AllGroup || g.ID == DefaultGroup || g.ID == InvalidGroup {
			return fmt.Errorf("scenario validation: group id %d is reserved", g.ID)
		}
		if groups[g.ID] {
			return fmt.Errorf("scenario validation: duplicate group id %d", g.ID)
		}
		groups[g.ID] = true
	}

	for _, f := range s.Fleet {
		if _, ok := engines[f.Engine]; !ok {
			return fmt.Errorf("scenario validation: fleet references unknown engine %d", f.Engine)
		}
		if !groups[f.Group] || f.Group == AllGroup {
			return fmt.Errorf("scenario validation: fleet references unknown group %d", f.Group)
		}
		if f.Count < 0 {
			return fmt.Errorf("scenario validation: fleet count for engine %d is negative", f.Engine)
		}
	}

	rules := make(map[ruleKey]EngineID, len(s.Replacements))
	for _, r := range s.Replacements {
		if !groups[r.Group] {
			return fmt.Errorf("scenario validation: replacement references unknown group %d", r.Group)
		}
		from, ok := engines[r.From]
		if !ok {
			return fmt.Errorf("scenario validation: replacement references unknown engine %d", r.From)
		}
		to, ok := engines[r.To]
		if !ok {
			return fmt.Errorf("scenario validation: replacement references unknown engine %d", r.To)
		}
		if err := CheckReplacementPair(from, to); err != nil {
			return fmt.Errorf("scenario validation: %w", err)
		}
		key := ruleKey{owner: s.Owner, group: r.Group, engine: r.From}
		if _, dup := rules[key]; dup {
			return fmt.Errorf("scenario validation: duplicate replacement for engine %d in group %d", r.From, r.Group)
		}
		rules[key] = r.To
	}
	for key, to := range rules {
		if _, chained := rules[ruleKey{owner: key.owner, group: key.group, engine: to}]; chained {
			return fmt.Errorf("scenario validation: replacement target %d has a replacement of its own in group %d", to, key.group)
		}
	}

	return nil
}

// CheckReplacementPair reports why from cannot be replaced by to, if it cannot
func CheckReplacementPair(from, to *EngineModel) error {
	if from.ID == to.ID {
		return fmt.Errorf("engine %d cannot replace itself", from.ID)
	}
	if from.Category != to.Category {
		return fmt.Errorf("engine %d (%s) cannot be replaced by %d (%s)", from.ID, from.Category, to.ID, to.Category)
	}
	if from.Category == Train && from.Wagon != to.Wagon {
		return fmt.Errorf("engine %d and %d mix wagons and locomotives", from.ID, to.ID)
	}
	if from.Category == Road && from.Tram != to.Tram {
		return fmt.Errorf("engine %d and %d mix trams and road vehicles", from.ID, to.ID)
	}
	return nil
}

// LoadScenario reads, parses and validates a scenario file. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := ParseScenario(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario '%s': %w", filepath.Base(path), err)
	}

	if err := ValidateScenario(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseScenario decodes scenario bytes; ext selects the format
func ParseScenario(data []byte, ext string) (*Scenario, error) {
	var s Scenario
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// DefaultScenario returns a small built-in scenario covering every vehicle category
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:               "default",
		Description:        "Built-in temperate company with a mixed fleet",
		Owner:              0,
		AvailableRailTypes: []RailType{Rail, Electric},
		Engines: []EngineModel{
			{ID: 0, Name: "Kirby Paul Tank (Steam)", Category: Train, RailType: Rail, Cargo: InvalidCargo, ListPosition: 10, Buildable: true},
			{ID: 1, Name: "MJS 250 (Diesel)", Category: Train, RailType: Rail, Cargo: InvalidCargo, ListPosition: 12, Buildable: true},
			{ID: 2, Name: "SH '8P' (Steam)", Category: Train, RailType: Rail, Cargo: InvalidCargo, ListPosition: 11, Buildable: false},
			{ID: 3, Name: "Asiastar (Electric)", Category: Train, RailType: Electric, Cargo: InvalidCargo, ListPosition: 20, Buildable: true},
			{ID: 4, Name: "Passenger Carriage", Category: Train, RailType: Rail, Wagon: true, Cargo: Passengers, Capacity: 40, ListPosition: 30, Buildable: true},
			{ID: 5, Name: "Mail Van", Category: Train, RailType: Rail, Wagon: true, Cargo: Mail, Capacity: 30, ListPosition: 31, Buildable: true},
			{ID: 6, Name: "Coal Truck", Category: Train, RailType: Rail, Wagon: true, Cargo: Coal, Capacity: 30, ListPosition: 32, Buildable: true},
			{ID: 7, Name: "MPS Regal Bus", Category: Road, Cargo: Passengers, Capacity: 31, ListPosition: 40, Buildable: true},
			{ID: 8, Name: "Hereford Leopard Bus", Category: Road, Cargo: Passengers, Capacity: 35, ListPosition: 41, Buildable: true},
			{ID: 9, Name: "Balogh Coal Truck", Category: Road, Cargo: Coal, Capacity: 20, ListPosition: 42, Buildable: true},
			{ID: 10, Name: "MPS Tram", Category: Road, Tram: true, Cargo: Passengers, Capacity: 30, ListPosition: 43, Buildable: true},
			{ID: 11, Name: "MPS Passenger Ferry", Category: Ship, Cargo: Passengers, Capacity: 100, ListPosition: 50, Buildable: true},
			{ID: 12, Name: "FFP Passenger Ferry", Category: Ship, Cargo: Passengers, Capacity: 130, ListPosition: 51, Buildable: true},
			{ID: 13, Name: "Sampson U52", Category: Aircraft, Cargo: Passengers, Capacity: 25, ListPosition: 60, Buildable: true},
			{ID: 14, Name: "Coleman Count", Category: Aircraft, Cargo: Passengers, Capacity: 65, ListPosition: 61, Buildable: true},
		},
		Fleet: []FleetEntry{
			{Group: DefaultGroup, Engine: 0, Count: 3},
			{Group: DefaultGroup, Engine: 2, Count: 1},
			{Group: DefaultGroup, Engine: 4, Count: 6},
			{Group: DefaultGroup, Engine: 7, Count: 4},
			{Group: DefaultGroup, Engine: 11, Count: 1},
			{Group: DefaultGroup, Engine: 13, Count: 2},
		},
		Replacements: []ReplacementRule{
			{Group: DefaultGroup, From: 2, To: 1},
		},
	}
}
