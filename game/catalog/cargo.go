package catalog

import (
	"fmt"
	"strings"
)

// CargoID identifies a cargo type
type CargoID uint8

// InvalidCargo marks "carries nothing"
const InvalidCargo CargoID = 0xFF

const (
	Passengers CargoID = iota
	Coal
	Mail
	Oil
	Livestock
	Goods
	Grain
	Wood
	IronOre
	Steel
	Valuables
)

var cargoLabels = [...]string{
	"passengers",
	"coal",
	"mail",
	"oil",
	"livestock",
	"goods",
	"grain",
	"wood",
	"iron_ore",
	"steel",
	"valuables",
}

// Valid reports whether c names a known cargo
func (c CargoID) Valid() bool {
	return int(c) < len(cargoLabels)
}

func (c CargoID) String() string {
	if c == InvalidCargo {
		return "none"
	}
	if !c.Valid() {
		return fmt.Sprintf("cargo(%d)", uint8(c))
	}
	return cargoLabels[c]
}

// MarshalText implements encoding.TextMarshaler
func (c CargoID) MarshalText() ([]byte, error) {
	if c != InvalidCargo && !c.Valid() {
		return nil, fmt.Errorf("unknown cargo %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *CargoID) UnmarshalText(text []byte) error {
	parsed, err := ParseCargo(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCargo parses a cargo label; "none" and "" map to InvalidCargo
func ParseCargo(label string) (CargoID, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "none" {
		return InvalidCargo, nil
	}
	for i, l := range cargoLabels {
		if l == label {
			return CargoID(i), nil
		}
	}
	return InvalidCargo, fmt.Errorf("unknown cargo %q", label)
}

// CargoMask is a bit set of cargo types
type CargoMask uint32

// Has reports whether c is in the mask
func (m CargoMask) Has(c CargoID) bool {
	if c >= 32 {
		return false
	}
	return m&(1<<c) != 0
}

// With returns the mask with c added
func (m CargoMask) With(c CargoID) CargoMask {
	if c >= 32 {
		return m
	}
	return m | 1<<c
}

// Intersects reports whether the two masks share a cargo
func (m CargoMask) Intersects(other CargoMask) bool {
	return m&other != 0
}
