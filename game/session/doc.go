// Package session stores the running autoreplace sessions.
//
// Manager implements service.SessionManager. Sessions are kept in memory
// only and looked up case-insensitively; generated IDs are the first eight
// hex characters of a random uuid.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", "default", catalog.DefaultScenario())
//	if err != nil {
//		log.Fatal().Err(err).Msg("create session")
//	}
//
//	// Drop sessions idle for more than an hour
//	manager.CleanupExpiredSessions(time.Hour)
package session
