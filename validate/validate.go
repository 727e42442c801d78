// Command validate checks the scenario files in a directory. It checks:
//   - JSON/YAML structure
//   - Scenario consistency (engines, groups, fleet and replacement rules)
//   - Replacement coverage: every owned engine model is opened in a replace
//     dialog and should offer at least one replacement candidate
//
// Engines without candidates are reported as warnings; --strict turns them
// into errors.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

// ValidationResult captures the outcome of validating a single file.
// Info is only filled for valid files.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateScenario loads and validates a single scenario file
func validateScenario(filePath string, strict bool) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	s, err := catalog.ParseScenario(data, filepath.Ext(filePath))
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid %s: %v", format(filePath), err))
		return result
	}

	w, err := catalog.NewWorld(s)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Warnings = checkCoverage(s, w)
	if strict && len(result.Warnings) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
		return result
	}

	vehicles := 0
	for _, f := range s.Fleet {
		vehicles += f.Count
	}
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", s.Name),
		fmt.Sprintf("✓ Engines: %d", len(s.Engines)),
		fmt.Sprintf("✓ Groups: %d", len(s.Groups)),
		fmt.Sprintf("✓ Vehicles: %d", vehicles),
		fmt.Sprintf("✓ Replacement rules: %d", len(s.Replacements)),
	)
	if len(result.Warnings) == 0 {
		result.Info = append(result.Info, "✓ Coverage: every owned engine has a replacement candidate")
	}
	return result
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "YAML"
	default:
		return "JSON"
	}
}

type discard struct{}

func (discard) Submit(replace.Request) {}

// checkCoverage opens a replace dialog for every group and category that
// holds vehicles, selects each source row in turn and records engines whose
// target list stays empty under every rail type and mode they appear in.
func checkCoverage(s *catalog.Scenario, w *catalog.World) []string {
	groups := []catalog.Group{{ID: catalog.DefaultGroup, Name: "Ungrouped"}}
	groups = append(groups, s.Groups...)

	var warnings []string
	for _, g := range groups {
		for _, cat := range catalog.Categories {
			candidates := map[catalog.EngineID]int{}
			for _, mode := range dialogModes(cat, w.AvailableRailTypes(s.Owner).Slice()) {
				for id, n := range targetCounts(s.Owner, g.ID, cat, mode, w) {
					candidates[id] = max(candidates[id], n)
				}
			}

			var missing []catalog.EngineID
			for id, n := range candidates {
				if n == 0 {
					missing = append(missing, id)
				}
			}
			sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
			for _, id := range missing {
				e, _ := w.Engine(id)
				warnings = append(warnings, fmt.Sprintf("%s (%d) in group %q has no replacement candidate", e.Name, id, g.Name))
			}
		}
	}
	return warnings
}

type dialogMode struct {
	railType catalog.RailType
	wagons   bool
}

func dialogModes(cat catalog.Category, railTypes []catalog.RailType) []dialogMode {
	if cat != catalog.Train {
		return []dialogMode{{railType: catalog.Rail}}
	}
	modes := make([]dialogMode, 0, 2*len(railTypes))
	for _, rt := range railTypes {
		modes = append(modes, dialogMode{railType: rt}, dialogMode{railType: rt, wagons: true})
	}
	return modes
}

// targetCounts returns the target list length for every source entry
func targetCounts(owner catalog.OwnerID, group catalog.GroupID, cat catalog.Category, mode dialogMode, w *catalog.World) map[catalog.EngineID]int {
	d := replace.Open(
		replace.Options{Category: cat, Owner: owner, Group: group},
		w, discard{}, &replace.Preferences{DefaultRailType: mode.railType},
	)
	defer d.Handle(replace.Close{})

	if mode.wagons {
		d.Handle(replace.ToggleMode{})
	}

	counts := map[catalog.EngineID]int{}
	v := d.Draw()
	for idx := 0; idx < v.Source.Total; idx++ {
		d.Handle(replace.Scroll{Side: replace.Source, Position: idx})
		row := idx - d.Draw().Source.Scroll
		d.Handle(replace.ClickRow{Side: replace.Source, Y: replace.RowY(cat, row)})

		view := d.Draw()
		if view.Source.Selected == catalog.InvalidEngine {
			continue
		}
		counts[view.Source.Selected] = view.Target.Total
	}
	return counts
}

// validateDir validates every scenario file in dir and writes a report to
// out. It returns false if any file is invalid.
func validateDir(out io.Writer, dir string, strict bool) (bool, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return false, fmt.Errorf("error finding scenario files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return false, fmt.Errorf("no scenario files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateScenario(file, strict)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
			for _, warn := range result.Warnings {
				fmt.Fprintln(out, "  ⚠ "+warn)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(out, "✅ All scenarios are valid!")
	} else {
		fmt.Fprintln(out, "❌ Some scenarios have errors")
	}
	return allValid, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate autoreplace scenario files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "scenarios",
				Usage:   "directory holding scenario files",
				Sources: cli.EnvVars("SCENARIO_DIR"),
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "treat engines without replacement candidates as errors",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ok, err := validateDir(cmd.Root().Writer, cmd.String("dir"), cmd.Bool("strict"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// main validates the scenario directory and exits non-zero if any file is invalid
func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
