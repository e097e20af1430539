package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

const maxRows = 10

// Render returns the plain-text body lines for a panel. Panels without
// backend data render a short placeholder.
func Render(kind Kind, data Data) []string {
	switch kind {
	case KindDashboard, KindAnalytics:
		return renderDashboard(data)
	case KindJobs:
		return renderJobs(data)
	case KindSavings:
		return renderSavings(data)
	case KindTasks:
		return renderTasks(data)
	case KindAchievements:
		return renderAchievements(data)
	case KindTerminal:
		return []string{
			"thriveos terminal",
			"Type a command and press enter; \"help\" lists commands.",
		}
	case KindCalendar, KindNotes, KindNetwork, KindLearning, KindSettings:
		return []string{kind.String() + " has no live data."}
	}
	return []string{"unknown panel"}
}

func renderDashboard(data Data) []string {
	lines := []string{
		fmt.Sprintf("Jobs available:   %d", len(data.Jobs)),
		fmt.Sprintf("Applications:     %d", len(data.Applications)),
		fmt.Sprintf("Tasks completed:  %d/%d", data.CompletedTasks(), len(data.Tasks)),
		fmt.Sprintf("Achievements:     %d/%d", data.UnlockedCount(), len(data.Achievements)),
	}
	if data.Savings != nil {
		lines = append(lines, fmt.Sprintf("Savings:          $%s (%.0f%%)",
			humanize.Commaf(data.Savings.CurrentAmount), data.Savings.ProgressPercentage))
	}
	if len(data.Stats) > 0 {
		keys := make([]string, 0, len(data.Stats))
		for k := range data.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines = append(lines, "")
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", k, strings.Trim(string(data.Stats[k]), `"`)))
		}
	}
	return lines
}

func renderJobs(data Data) []string {
	if len(data.Jobs) == 0 {
		return []string{"Loading remote job opportunities...", "Run the jobs.refresh action to load data."}
	}
	lines := make([]string, 0, maxRows)
	for i, j := range data.Jobs {
		if i == maxRows {
			lines = append(lines, fmt.Sprintf("... %d more", len(data.Jobs)-maxRows))
			break
		}
		line := fmt.Sprintf("%s @ %s", j.Title, j.Company)
		if j.Salary != "" {
			line += "  " + j.Salary
		}
		lines = append(lines, line)
	}
	return lines
}

func renderSavings(data Data) []string {
	if data.Savings == nil {
		return []string{"No savings data loaded."}
	}
	s := data.Savings
	const barWidth = 20
	filled := int(s.ProgressPercentage / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return []string{
		fmt.Sprintf("Current:  $%s", humanize.Commaf(s.CurrentAmount)),
		fmt.Sprintf("Progress: [%s%s] %.0f%%", strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), s.ProgressPercentage),
		fmt.Sprintf("Monthly target: $%s", humanize.Commaf(s.MonthlyTarget)),
		fmt.Sprintf("Months to goal: %.0f", s.MonthsToGoal),
		fmt.Sprintf("Daily streak:   %d", s.DailyStreak),
	}
}

func renderTasks(data Data) []string {
	if len(data.Tasks) == 0 {
		return []string{"No tasks yet."}
	}
	lines := make([]string, 0, len(data.Tasks))
	for _, t := range data.Tasks {
		mark := "[ ]"
		if t.Completed() {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, t.Title)
		if t.Priority != "" {
			line += " (" + t.Priority + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func renderAchievements(data Data) []string {
	if len(data.Achievements) == 0 {
		return []string{"No achievements data loaded."}
	}
	lines := make([]string, 0, len(data.Achievements))
	for _, a := range data.Achievements {
		mark := "locked"
		if a.Unlocked {
			mark = "unlocked"
		}
		lines = append(lines, fmt.Sprintf("%s %s [%s]", a.Icon, a.Title, mark))
	}
	return lines
}
