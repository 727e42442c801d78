package catalog

import (
	"fmt"
	"strings"
)

// RailType is the track type a rail vehicle is built for
type RailType uint8

const (
	Rail RailType = iota
	Electric
	Monorail
	Maglev
)

// InvalidRailType marks vehicles that do not run on rails
const InvalidRailType RailType = 0xFF

var railTypeNames = [...]string{"rail", "elrail", "monorail", "maglev"}

// RailTypes lists every rail type in dropdown order
var RailTypes = []RailType{Rail, Electric, Monorail, Maglev}

// compatibleRailTypes holds, per engine rail type, the track types it can traverse.
// Running on a track is independent of being powered on it.
var compatibleRailTypes = [...]RailTypeSet{
	Rail:     RailTypeSet(0).With(Rail).With(Electric),
	Electric: RailTypeSet(0).With(Rail).With(Electric),
	Monorail: RailTypeSet(0).With(Monorail),
	Maglev:   RailTypeSet(0).With(Maglev),
}

// Valid reports whether r is a known rail type
func (r RailType) Valid() bool {
	return int(r) < len(railTypeNames)
}

func (r RailType) String() string {
	if !r.Valid() {
		return fmt.Sprintf("railtype(%d)", uint8(r))
	}
	return railTypeNames[r]
}

// MarshalText implements encoding.TextMarshaler
func (r RailType) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown rail type %d", uint8(r))
	}
	return []byte(railTypeNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RailType) UnmarshalText(text []byte) error {
	parsed, err := ParseRailType(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRailType parses a rail type name such as "rail" or "maglev"
func ParseRailType(name string) (RailType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range railTypeNames {
		if n == name {
			return RailType(i), nil
		}
	}
	return InvalidRailType, fmt.Errorf("unknown rail type %q", name)
}

// IsCompatibleRail reports whether a vehicle of engineType can run on track of trackType
func IsCompatibleRail(engineType, trackType RailType) bool {
	if !engineType.Valid() || !trackType.Valid() {
		return false
	}
	return compatibleRailTypes[engineType].Has(trackType)
}

// RailTypeSet is a bit set of rail types
type RailTypeSet uint8

// Has reports whether r is in the set
func (s RailTypeSet) Has(r RailType) bool {
	return r.Valid() && s&(1<<r) != 0
}

// With returns the set with r added
func (s RailTypeSet) With(r RailType) RailTypeSet {
	if !r.Valid() {
		return s
	}
	return s | 1<<r
}

// Slice returns the members of the set in dropdown order
func (s RailTypeSet) Slice() []RailType {
	var out []RailType
	for _, r := range RailTypes {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
