// Package command executes the requests issued by replace dialogs and the
// world events that change what those dialogs show.
//
// Dialog requests are not applied when they are made. An Executor queues
// them and applies them on Flush, which the server calls once per
// simulation tick. Every applied change that can alter a dialog list is
// reported back through an Invalidator, so a dialog only learns about the
// effect of its own command through the same signal it gets for any other
// change in the game.
//
// Usage:
//
//	exec := command.NewExecutor(world, sess)
//	dialog := replace.Open(opts, world, exec, prefs)
//	dialog.Handle(replace.StartReplacing{})
//
//	results, err := exec.Flush(ctx)
//
// Invalidation:
//
// Buying, selling and changing a replacement rule invalidate the source
// list when the engine has no vehicles in the group or in the company.
// Introducing and retiring an engine invalidate the target list.
package command
