// Command analyze prints quick, human-readable heuristics about the scenario
// files in a directory. It summarizes the fleet of every group and
// highlights owned models that can no longer be built, replacement rules
// that point at retired models and locomotives on rail types the company
// cannot build on.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/config"
)

// GroupSummary counts the vehicles of one group per category
type GroupSummary struct {
	ID       catalog.GroupID
	Name     string
	Vehicles map[catalog.Category]int
	Rules    int
}

// Report is the analysis of one scenario
type Report struct {
	Name        string
	Description string
	Engines     map[catalog.Category]int
	Groups      []GroupSummary
	Warnings    []string
	Notes       []string
}

func analyzeScenario(s *catalog.Scenario) (*Report, error) {
	w, err := catalog.NewWorld(s)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Name:        s.Name,
		Description: s.Description,
		Engines:     map[catalog.Category]int{},
	}
	for _, e := range s.Engines {
		r.Engines[e.Category]++
	}

	groupName := func(id catalog.GroupID) string {
		if g, ok := w.Group(id); ok {
			return g.Name
		}
		return fmt.Sprintf("group %d", id)
	}
	engineName := func(id catalog.EngineID) string {
		if e, ok := w.Engine(id); ok {
			return e.Name
		}
		return fmt.Sprintf("engine #%d", id)
	}

	ids := []catalog.GroupID{catalog.DefaultGroup}
	for _, g := range s.Groups {
		ids = append(ids, g.ID)
	}
	for _, id := range ids {
		summary := GroupSummary{ID: id, Name: groupName(id), Vehicles: map[catalog.Category]int{}}
		for _, f := range s.Fleet {
			if f.Group != id {
				continue
			}
			e, _ := w.Engine(f.Engine)
			summary.Vehicles[e.Category] += f.Count
		}
		for _, rule := range s.Replacements {
			if rule.Group == id {
				summary.Rules++
			}
		}
		r.Groups = append(r.Groups, summary)
	}

	// Owned models that are out of production
	for _, f := range s.Fleet {
		e, _ := w.Engine(f.Engine)
		if f.Count == 0 || w.IsBuildable(e.ID, e.Category, s.Owner) {
			continue
		}
		to := w.ExistingReplacement(s.Owner, e.ID, f.Group)
		if to == catalog.InvalidEngine {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d x %s in %q can no longer be built and have no replacement",
				f.Count, e.Name, groupName(f.Group)))
			continue
		}
		r.Notes = append(r.Notes, fmt.Sprintf("%s in %q is replaced by %s", e.Name, groupName(f.Group), engineName(to)))
	}

	for _, rule := range s.Replacements {
		to, _ := w.Engine(rule.To)
		if !w.IsBuildable(to.ID, to.Category, s.Owner) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("replacement target %s in %q cannot be built",
				to.Name, groupName(rule.Group)))
		}
		if rule.Group != catalog.AllGroup && w.OwnedCount(s.Owner, rule.Group, rule.From) == 0 {
			r.Notes = append(r.Notes, fmt.Sprintf("rule for %s in %q has no vehicles to replace",
				engineName(rule.From), groupName(rule.Group)))
		}
	}

	// Company-wide rules skipped by protected groups
	for _, g := range s.Groups {
		if !g.ReplaceProtection {
			continue
		}
		for _, f := range s.Fleet {
			if f.Group != g.ID || f.Count == 0 || w.HasReplacement(s.Owner, f.Engine, g.ID) {
				continue
			}
			if to := w.ExistingReplacement(s.Owner, f.Engine, catalog.AllGroup); to != catalog.InvalidEngine {
				r.Notes = append(r.Notes, fmt.Sprintf("%s in protected group %q ignores the company-wide rule to %s",
					engineName(f.Engine), g.Name, engineName(to)))
			}
		}
	}

	avail := w.AvailableRailTypes(s.Owner)
	for _, e := range w.EnginesOfCategory(catalog.Train) {
		if e.IsLocomotive() && !avail.Has(e.RailType) {
			r.Notes = append(r.Notes, fmt.Sprintf("%s runs on %s, which the company cannot build on", e.Name, e.RailType))
		}
	}

	return r, nil
}

func printReport(out io.Writer, id string, r *Report) {
	fmt.Fprintf(out, "\n=== Analyzing %s ===\n", id)
	fmt.Fprintf(out, "Name: %s\n", r.Name)
	fmt.Fprintf(out, "Description: %s\n", r.Description)

	fmt.Fprint(out, "Engines:")
	for _, cat := range catalog.Categories {
		fmt.Fprintf(out, " %s=%d", cat, r.Engines[cat])
	}
	fmt.Fprintln(out)

	for _, g := range r.Groups {
		fmt.Fprintf(out, "Group %s:", g.Name)
		total := 0
		for _, cat := range catalog.Categories {
			if n := g.Vehicles[cat]; n > 0 {
				fmt.Fprintf(out, " %s=%d", cat, n)
				total += n
			}
		}
		if total == 0 {
			fmt.Fprint(out, " (empty)")
		}
		fmt.Fprintf(out, ", %d rules\n", g.Rules)
	}

	for _, n := range r.Notes {
		fmt.Fprintf(out, "   %s\n", n)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(out, "⚠️  WARNING: %d issues found\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "   %s\n", w)
		}
	} else {
		fmt.Fprintln(out, "✅ Every owned model can be built or has a replacement")
	}
}

// analyzeDir prints a report for the named scenarios, or for every
// scenario in the manager's directory when names is empty
func analyzeDir(out io.Writer, m *config.Manager, names []string) error {
	if len(names) == 0 {
		infos, err := m.ListScenarios()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.ScenarioID)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No scenarios found")
		return nil
	}

	for _, name := range names {
		s, err := m.LoadScenario(name)
		if err != nil {
			fmt.Fprintf(out, "\n=== Analyzing %s ===\nError: %v\n", name, err)
			continue
		}
		r, err := analyzeScenario(s)
		if err != nil {
			fmt.Fprintf(out, "\n=== Analyzing %s ===\nError: %v\n", name, err)
			continue
		}
		printReport(out, name, r)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print fleet heuristics for autoreplace scenarios",
		ArgsUsage: "[scenario...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "scenarios",
				Usage:   "directory holding scenario files",
				Sources: cli.EnvVars("SCENARIO_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, err := config.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}
			return analyzeDir(cmd.Root().Writer, m, cmd.Args().Slice())
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
