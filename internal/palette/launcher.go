package palette

import (
	"context"

	"github.com/1broseidon/thriveos/internal/desktop"
	"github.com/1broseidon/thriveos/internal/panel"
)

var kindIcons = map[panel.Kind]string{
	panel.KindDashboard:    "utilities-system-monitor",
	panel.KindJobs:         "system-search",
	panel.KindSavings:      "accessories-calculator",
	panel.KindTasks:        "checkbox",
	panel.KindCalendar:     "office-calendar",
	panel.KindNotes:        "accessories-text-editor",
	panel.KindNetwork:      "network-workgroup",
	panel.KindLearning:     "accessories-dictionary",
	panel.KindTerminal:     "utilities-terminal",
	panel.KindSettings:     "preferences-system",
	panel.KindAchievements: "starred",
	panel.KindAnalytics:    "x-office-spreadsheet",
}

// PanelItems builds launcher rows from the catalog. Panels with an open
// window are marked active, minimized ones urgent.
func PanelItems(catalog []panel.Entry, windows []desktop.Window) []Item {
	state := make(map[string]desktop.Lifecycle, len(windows))
	for _, w := range windows {
		state[w.ID] = w.Lifecycle
	}
	items := make([]Item, 0, len(catalog))
	for _, e := range catalog {
		label := e.Title
		if e.Elevated {
			label += " (elevated)"
		}
		lc, open := state[e.ID]
		items = append(items, Item{
			Label:  label,
			Value:  e.ID,
			Icon:   kindIcons[e.Kind],
			Info:   e.ID,
			Active: open && lc != desktop.LifecycleMinimized,
			Urgent: open && lc == desktop.LifecycleMinimized,
		})
	}
	return items
}

// ChoosePanel shows the catalog and returns the chosen panel id.
func ChoosePanel(ctx context.Context, b Backend, catalog []panel.Entry, windows []desktop.Window) (string, error) {
	item, err := b.Show(ctx, "open", PanelItems(catalog, windows))
	if err != nil {
		return "", err
	}
	return item.Value, nil
}
