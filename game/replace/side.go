package replace

import "fmt"

// Side selects one of the dialog's two lists
type Side uint8

const (
	// Source is the left list: engines the owner runs and may replace
	Source Side = iota
	// Target is the right list: engines the source may be replaced with
	Target
)

// Sides lists both sides in drawing order
var Sides = [2]Side{Source, Target}

// Valid reports whether s is Source or Target
func (s Side) Valid() bool {
	return s <= Target
}

func (s Side) String() string {
	switch s {
	case Source:
		return "source"
	case Target:
		return "target"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown side %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts "source"/"left" and "target"/"right"
func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSide parses a side name
func ParseSide(name string) (Side, error) {
	switch name {
	case "source", "left":
		return Source, nil
	case "target", "right":
		return Target, nil
	}
	return Source, fmt.Errorf("unknown side %q", name)
}
