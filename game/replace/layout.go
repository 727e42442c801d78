package replace

import "github.com/wricardo/mcp-training/autoreplace/game/catalog"

// Layout constants, in pixels
const (
	// ListTop is the y coordinate of the first list row within the dialog
	ListTop = 14

	SmallRowHeight = 14
	LargeRowHeight = 24
)

// RowHeight returns the height of one list row for a vehicle category
func RowHeight(cat catalog.Category) int {
	if cat == catalog.Train || cat == catalog.Road {
		return SmallRowHeight
	}
	return LargeRowHeight
}

// InitialCapacity returns how many rows a list shows before any resize
func InitialCapacity(rowHeight int) int {
	if rowHeight == SmallRowHeight {
		return 8
	}
	return 4
}

// rowAt maps a y coordinate to a visible row index; ok is false above the list
func rowAt(y, rowHeight int) (row int, ok bool) {
	if y < ListTop || rowHeight <= 0 {
		return 0, false
	}
	return (y - ListTop) / rowHeight, true
}

// RowY returns a y coordinate inside visible row idx of a category's lists
func RowY(cat catalog.Category, idx int) int {
	return ListTop + idx*RowHeight(cat) + RowHeight(cat)/2
}
