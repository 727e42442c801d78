// Package catalog holds the engine registry of a running game: engine models,
// rail types and their compatibility, cargo types, and the fleet and
// replacement rules of each company.
//
// Core Types:
//
// EngineModel describes a buildable vehicle model. Scenario is the on-disk
// form of a registry snapshot (JSON or YAML). World is the in-memory registry
// built from a Scenario; it answers the queries the replace dialog needs
// (engines of a category, canonical list positions, buildability, owned
// counts, existing replacement rules) and is mutated only by the command
// executor.
//
// Usage:
//
//	scenario, err := catalog.LoadScenario("scenarios/temperate.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	world, err := catalog.NewWorld(scenario)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, e := range world.EnginesOfCategory(catalog.Train) {
//		fmt.Println(e.Name, world.OwnedCount(scenario.Owner, catalog.AllGroup, e.ID))
//	}
//
// Rail Compatibility:
//
// A rail vehicle can run on every track type its own rail type is compatible
// with, whether or not it is powered there. Conventional and electrified rail
// are mutually compatible; monorail and maglev are only compatible with
// themselves.
package catalog
