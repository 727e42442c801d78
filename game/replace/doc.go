// Package replace implements the autoreplace dialog: two coupled engine lists
// from which a player picks a source engine model and the model to replace
// it with, plus the buttons that start and stop the replacement.
//
// Core Types:
//
// Dialog is the controller. It receives Events (clicks, mode and rail type
// changes, invalidations from the game) and only marks lists dirty; Draw
// rebuilds whatever is out of date and returns a View. State is the
// selection and filter record the controller owns, indexed by Side.
//
// Lists:
//
// The source list holds engines of the dialog's category that the owner has
// in the selected group or has a replacement rule for. The target list holds
// engines the owner can build that share a cargo with the selected source.
// For trains both lists are filtered by locomotive/wagon mode and rail type
// and ordered by each engine's canonical list position.
//
// The target list always follows the source selection: it is rebuilt on the
// next draw after the source selection changes and is empty while no source
// is selected.
//
// Usage:
//
//	d := replace.Open(replace.Options{
//		Category: catalog.Train,
//		Owner:    0,
//		Group:    catalog.DefaultGroup,
//	}, world, executor, prefs)
//
//	view := d.Draw()
//	d.Handle(replace.ClickRow{Side: replace.Target, Y: replace.ListTop + 1})
//	if d.Draw().StartEnabled {
//		d.Handle(replace.StartReplacing{})
//	}
//
// Commands are submitted to a Commander and never executed synchronously;
// their effects arrive later as Invalidate events.
package replace
