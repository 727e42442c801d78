// Package config loads the scenario files sessions are created from.
//
// Scenarios live in a single directory as JSON (.json) or YAML (.yaml, .yml)
// files and are addressed by their file name without extension. Each file
// describes the engine registry, the company's groups and fleet and any
// replacement rules already in place; see catalog.Scenario for the format.
//
// The default scenario is "default" when such a file exists, otherwise the
// first valid scenario in the directory, otherwise the built-in
// catalog.DefaultScenario.
//
// Usage:
//
//	manager, err := config.NewManager("scenarios")
//	if err != nil {
//		log.Fatal().Err(err).Msg("scenario directory")
//	}
//
//	scenario, err := manager.LoadScenario("monorail")
//	infos, err := manager.ListScenarios()
//
// Loaded scenarios are cached; RefreshCache forgets them.
package config
