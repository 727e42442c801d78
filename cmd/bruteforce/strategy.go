package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
)

// StepKind is what the strategy wants to do next
type StepKind int

const (
	StepAction StepKind = iota
	StepTick
	StepSwitchDialog
	StepBuy
	StepSell
	StepRetire
	StepIntroduce
)

func (k StepKind) String() string {
	switch k {
	case StepAction:
		return "action"
	case StepTick:
		return "tick"
	case StepSwitchDialog:
		return "switch"
	case StepBuy:
		return "buy"
	case StepSell:
		return "sell"
	case StepRetire:
		return "retire"
	case StepIntroduce:
		return "introduce"
	default:
		return fmt.Sprintf("step(%d)", int(k))
	}
}

// Step is one move of the strategy
type Step struct {
	Kind     StepKind
	Action   service.Action
	Category catalog.Category
}

func (s Step) String() string {
	switch s.Kind {
	case StepAction:
		a := s.Action
		switch a.Type {
		case service.ActionClick:
			return fmt.Sprintf("%s click %s row %d", s.Category, a.Side, *a.Row)
		case service.ActionScroll:
			return fmt.Sprintf("%s scroll %s to %d", s.Category, a.Side, a.Position)
		case service.ActionSelectRailType:
			return fmt.Sprintf("%s select_rail_type %s", s.Category, a.RailType)
		case service.ActionResize:
			return fmt.Sprintf("%s resize %d", s.Category, a.DY)
		default:
			return fmt.Sprintf("%s %s", s.Category, a.Type)
		}
	default:
		return fmt.Sprintf("%s %s", s.Category, s.Kind)
	}
}

// weighted step kinds; actions dominate
var stepWeights = []struct {
	kind   StepKind
	weight int
}{
	{StepAction, 80},
	{StepTick, 8},
	{StepSwitchDialog, 4},
	{StepBuy, 3},
	{StepSell, 2},
	{StepRetire, 2},
	{StepIntroduce, 1},
}

var actionWeights = []struct {
	action string
	weight int
}{
	{service.ActionClick, 40},
	{service.ActionScroll, 10},
	{service.ActionToggleMode, 6},
	{service.ActionSelectRailType, 6},
	{service.ActionStartReplacing, 16},
	{service.ActionStopReplacing, 8},
	{service.ActionToggleKeepLength, 4},
	{service.ActionResize, 10},
}

// RandomStrategy picks random but plausible steps for the dialog it was
// last shown
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next step for a dialog currently showing v
func (s *RandomStrategy) Next(v *replace.View) Step {
	total := 0
	for _, w := range stepWeights {
		total += w.weight
	}
	n := s.rng.IntN(total)
	for _, w := range stepWeights {
		if n < w.weight {
			if w.kind == StepAction {
				return Step{Kind: StepAction, Category: v.Category, Action: s.nextAction(v)}
			}
			if w.kind == StepSwitchDialog {
				return Step{Kind: StepSwitchDialog, Category: catalog.Categories[s.rng.IntN(len(catalog.Categories))]}
			}
			return Step{Kind: w.kind, Category: v.Category}
		}
		n -= w.weight
	}
	return Step{Kind: StepTick, Category: v.Category}
}

func (s *RandomStrategy) nextAction(v *replace.View) service.Action {
	total := 0
	for _, w := range actionWeights {
		total += w.weight
	}
	n := s.rng.IntN(total)
	action := service.ActionClick
	for _, w := range actionWeights {
		if n < w.weight {
			action = w.action
			break
		}
		n -= w.weight
	}

	side, list := "source", &v.Source
	if s.rng.IntN(2) == 1 {
		side, list = "target", &v.Target
	}

	switch action {
	case service.ActionClick:
		// one row past the visible ones exercises clicks on empty space
		row := s.rng.IntN(max(list.Capacity, 1) + 1)
		return service.Action{Type: action, Side: side, Row: &row}
	case service.ActionScroll:
		return service.Action{Type: action, Side: side, Position: s.rng.IntN(list.Total+3) - 1}
	case service.ActionSelectRailType:
		rt := catalog.RailTypes[s.rng.IntN(len(catalog.RailTypes))]
		return service.Action{Type: action, RailType: rt.String()}
	case service.ActionResize:
		return service.Action{Type: action, DY: s.rng.IntN(97) - 48}
	default:
		return service.Action{Type: action}
	}
}

// Pick returns a random element index below n
func (s *RandomStrategy) Pick(n int) int {
	return s.rng.IntN(n)
}

// CheckView returns every dialog invariant the view breaks
func CheckView(v *replace.View, cat catalog.Category) []string {
	var violations []string
	fail := func(format string, args ...interface{}) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if v.Category != cat {
		fail("view is for %s, expected %s", v.Category, cat)
	}
	if v.Status == replace.Closed {
		return violations
	}

	for _, sd := range replace.Sides {
		l := v.List(sd)
		maxScroll := max(l.Total-l.Capacity, 0)
		if l.Capacity < 1 {
			fail("%s capacity %d below one row", sd, l.Capacity)
		}
		if l.Scroll < 0 || l.Scroll > maxScroll {
			fail("%s scroll %d outside [0, %d]", sd, l.Scroll, maxScroll)
		}
		if want := min(l.Capacity, max(l.Total-l.Scroll, 0)); len(l.Rows) != want {
			fail("%s shows %d rows, expected %d", sd, len(l.Rows), want)
		}
		selected := 0
		for _, r := range l.Rows {
			if r.Selected != (r.Engine == l.Selected) {
				fail("%s row %d selection flag disagrees with selected engine %d", sd, r.Engine, l.Selected)
			}
			if r.Selected {
				selected++
			}
		}
		if selected > 1 {
			fail("%s has %d selected rows", sd, selected)
		}
	}

	src, tgt := v.Source.Selected, v.Target.Selected
	if src == catalog.InvalidEngine {
		if v.Target.Total != 0 || tgt != catalog.InvalidEngine {
			fail("target list not empty without a source selection")
		}
		if v.Info != replace.InfoNoSelection {
			fail("info %q without a source selection", v.Info)
		}
	}
	for _, r := range v.Target.Rows {
		if r.Engine == src {
			fail("target list offers the source engine %d", src)
		}
	}

	if v.StartEnabled && (src == catalog.InvalidEngine || tgt == catalog.InvalidEngine || v.Replacement == tgt) {
		fail("start enabled with source %d, target %d, replacement %d", src, tgt, v.Replacement)
	}
	if v.StopEnabled != (src != catalog.InvalidEngine && v.Replacement != catalog.InvalidEngine) {
		fail("stop enabled=%t with source %d and replacement %d", v.StopEnabled, src, v.Replacement)
	}
	if src != catalog.InvalidEngine && v.Replacement == catalog.InvalidEngine && v.Info != replace.InfoNotReplacing {
		fail("info %q for a source without replacement", v.Info)
	}

	isTrain := cat == catalog.Train
	if (v.ShowEngines != nil) != isTrain || (v.RailType != nil) != isTrain || (v.KeepLength != nil) != isTrain {
		fail("train-only fields do not match category %s", cat)
	}
	return violations
}
