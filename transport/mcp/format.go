package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
	"github.com/wricardo/mcp-training/autoreplace/game/service"
)

func formatSessionInfo(s *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", s.ID)
	fmt.Fprintf(&b, "Scenario: %s\n", s.ScenarioName)
	fmt.Fprintf(&b, "Company: %d\n", s.Owner)
	fmt.Fprintf(&b, "Default rail type: %s\n", s.DefaultRail)

	open := make([]string, 0, len(s.OpenDialogs))
	for _, cat := range s.OpenDialogs {
		open = append(open, cat.String())
	}
	if len(open) == 0 {
		open = append(open, "none")
	}
	fmt.Fprintf(&b, "Open dialogs: %s\n", strings.Join(open, ", "))
	fmt.Fprintf(&b, "Pending commands: %d\n", s.PendingCommands)
	fmt.Fprintf(&b, "Created: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

func groupName(g catalog.GroupID) string {
	switch g {
	case catalog.DefaultGroup:
		return "ungrouped vehicles"
	case catalog.AllGroup:
		return "all vehicles"
	default:
		return fmt.Sprintf("group %d", g)
	}
}

// formatView renders a dialog as text, source and target one after the other
func formatView(v *replace.View) string {
	if v == nil {
		return "(no dialog)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Replace %s (%s)", v.Category, groupName(v.Group))
	if v.Status == replace.Closed {
		b.WriteString(" [closed]\n")
		return b.String()
	}
	b.WriteString("\n")

	if v.ShowEngines != nil {
		kind := "wagons"
		if *v.ShowEngines {
			kind = "locomotives"
		}
		fmt.Fprintf(&b, "Showing: %s", kind)
		if v.RailType != nil {
			fmt.Fprintf(&b, " on %s", *v.RailType)
		}
		if len(v.AvailableRailTypes) > 0 {
			names := make([]string, 0, len(v.AvailableRailTypes))
			for _, rt := range v.AvailableRailTypes {
				names = append(names, rt.String())
			}
			fmt.Fprintf(&b, " (available: %s)", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	formatList(&b, "Source (owned)", &v.Source, true)
	b.WriteString("\n")
	formatList(&b, "Target (replace with)", &v.Target, false)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Info: %s\n", v.Info)
	fmt.Fprintf(&b, "Start replacing: %s   Stop replacing: %s\n", enabled(v.StartEnabled), enabled(v.StopEnabled))
	if v.KeepLength != nil {
		fmt.Fprintf(&b, "Keep length: %t\n", *v.KeepLength)
	}
	return b.String()
}

func formatList(b *strings.Builder, title string, l *replace.ListView, owned bool) {
	fmt.Fprintf(b, "%s: %d engines", title, l.Total)
	if l.Total > l.Capacity {
		fmt.Fprintf(b, ", rows %d-%d shown", l.Scroll, l.Scroll+len(l.Rows)-1)
	}
	b.WriteString("\n")

	if len(l.Rows) == 0 {
		b.WriteString("  (empty)\n")
		return
	}
	for i, r := range l.Rows {
		marker := " "
		if r.Selected {
			marker = ">"
		}
		fmt.Fprintf(b, "%s [%d] %s (id %d)", marker, i, r.Name, r.Engine)
		if owned {
			fmt.Fprintf(b, " x%d", r.Owned)
		}
		b.WriteString("\n")
	}
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func formatEngines(cat catalog.Category, engines []service.EngineInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s engines (%d):\n\n", strings.ToUpper(cat.String()[:1])+cat.String()[1:], len(engines))
	for _, e := range engines {
		fmt.Fprintf(&b, "- %d %s", e.ID, e.Name)
		if cat == catalog.Train {
			kind := "loco"
			if e.Wagon {
				kind = "wagon"
			}
			fmt.Fprintf(&b, " [%s, %s]", e.RailType, kind)
		}
		if cat == catalog.Road && e.Tram {
			b.WriteString(" [tram]")
		}
		if e.Cargo != catalog.InvalidCargo {
			fmt.Fprintf(&b, " %d %s", e.Capacity, e.Cargo)
		}
		if !e.Buildable {
			b.WriteString(" (not buildable)")
		}
		if e.Owned > 0 {
			fmt.Fprintf(&b, ", owned %d", e.Owned)
		}
		if e.Replacement != catalog.InvalidEngine {
			fmt.Fprintf(&b, ", replaced by %d", e.Replacement)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatTick(t *service.TickResult) string {
	if len(t.Commands) == 0 {
		return "Tick: no pending commands"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tick: %d applied, %d rejected\n", t.Executed, t.Rejected)
	for _, c := range t.Commands {
		if c.Applied {
			fmt.Fprintf(&b, "  ✓ %s\n", c.Request)
		} else {
			fmt.Fprintf(&b, "  ✗ %s: %s\n", c.Request, c.Error)
		}
	}
	return b.String()
}

func formatHistory(h *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History (%d applied, %d rejected):\n", h.Executed, h.Rejected)
	if len(h.Entries) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, e := range h.Entries {
		status := "OK"
		if !e.Success {
			status = "FAIL: " + e.Error
		}
		fmt.Fprintf(&b, "  #%d %s %s %s\n", e.Number, time.Unix(e.Timestamp, 0).Format("15:04:05"), e.Action, status)
	}
	return b.String()
}
