// Package websocket pushes dialog updates to browser and tool clients.
//
// A single Hub goroutine owns every connection. Clients subscribe to one
// session with /ws?session=<id> and then receive JSON messages:
//
//	{"session_id": "1a2b3c4d", "event": "view_update", "category": "train", "view": {...}}
//
// Events are view_update (a dialog was redrawn), dialog_closed, fleet_update
// (a world event changed the fleet) and tick (queued commands were applied).
// Incoming messages are read only to keep the connection alive.
//
// Broadcasting never blocks the caller. When the hub queue is full the
// message is dropped; a client that cannot keep up is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastView(sessionID, catalog.Train, view)
package websocket
