// Package api provides the REST API of the autoreplace server.
//
// Endpoints:
//
//	POST   /api/sessions                               create a session {"scenario_id": "..."}
//	GET    /api/sessions                               list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//	GET    /api/sessions/{id}                          session info
//	DELETE /api/sessions/{id}                          delete a session
//
//	POST   /api/sessions/{id}/dialogs/{category}         open a replace dialog {"group": 65534}
//	GET    /api/sessions/{id}/dialogs/{category}         draw the dialog
//	POST   /api/sessions/{id}/dialogs/{category}/actions apply an action, see service.Action
//	DELETE /api/sessions/{id}/dialogs/{category}         close the dialog
//
//	GET    /api/sessions/{id}/engines?category=train   engine models with fleet data
//	POST   /api/sessions/{id}/engines/{engine}/introduce
//	POST   /api/sessions/{id}/engines/{engine}/retire
//	POST   /api/sessions/{id}/fleet/buy                {"group": 65534, "engine": 7, "count": 2}
//	POST   /api/sessions/{id}/fleet/sell
//
//	POST   /api/sessions/{id}/tick                     apply queued dialog commands now
//	GET    /api/sessions/{id}/history                  command history (?limit=N)
//
//	GET    /api/scenarios                              list scenario files
//	POST   /api/scenarios                              save a scenario
//	GET    /api/scenarios/{name}                       load a scenario
//
//	GET    /health
//	GET    /ws?session={id}                            WebSocket view updates
//
// Categories are train, road, ship and aircraft. The group defaults to the
// ungrouped vehicles (65534) when omitted.
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions,
// dialogs, scenarios, engines and groups, 400 for malformed input and 409
// for duplicate sessions.
//
// Every change to a dialog is also pushed to the session's WebSocket
// clients when the server is created with a hub.
package api
