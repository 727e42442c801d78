// Package mcp exposes the autoreplace REST API as Model Context Protocol tools.
//
// The Client talks to a running API server over HTTP and renders dialog
// views as plain text, so an agent can drive replace dialogs the way a
// player would.
//
// MCP Tools:
//
// Sessions:
//   - create_session, list_sessions, get_session, delete_session
//
// Dialogs:
//   - open_dialog: open (or reopen) the dialog of a vehicle category
//   - get_dialog: draw the dialog, rebuilding stale lists
//   - dialog_action: click, scroll, toggle_mode, select_rail_type,
//     start_replacing, stop_replacing, toggle_keep_length, resize
//   - close_dialog
//
// World:
//   - list_engines, buy_vehicles, sell_vehicles
//   - introduce_engine, retire_engine
//   - tick: apply queued replacement commands
//   - command_history
//
// Scenarios and help:
//   - list_scenarios, replace_instructions
//
// Transport Modes:
//
// GetMCPServer returns the underlying server, which main serves over stdio
// or mounts behind the /mcp HTTP endpoint.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
