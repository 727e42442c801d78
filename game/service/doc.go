// Package service provides the business logic layer of the autoreplace server.
//
// The service package implements:
//   - Multi-session management, one game world per session
//   - Replace dialogs, at most one per vehicle category and session
//   - Translation of wire actions into dialog events
//   - World events (buying, selling, introducing and retiring engines)
//   - The simulation tick that applies queued dialog commands
//
// Core Interfaces:
//
// ReplaceService is the main service interface used by every transport.
// SessionManager stores sessions and ScenarioManager loads the scenario
// files sessions are created from.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the game core. Every call is serialised with a mutex, so dialogs, which
// are not safe for concurrent use, only ever see one event at a time.
// Commands issued from a dialog are queued and only applied by Tick; their
// effect reaches the dialog through an invalidation signal.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	scenarioMgr, _ := config.NewManager("scenarios")
//	svc := service.NewReplaceService(sessionMgr, scenarioMgr)
//
//	info, err := svc.CreateSession(ctx, "default")
//	if err != nil {
//		log.Fatal().Err(err).Msg("create session")
//	}
//
//	svc.OpenDialog(ctx, info.ID, catalog.Train, catalog.DefaultGroup)
//	svc.Dispatch(ctx, info.ID, catalog.Train, service.Action{Type: service.ActionStartReplacing})
//	svc.Tick(ctx, info.ID)
package service
