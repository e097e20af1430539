package panel

import (
	"fmt"
	"sort"
	"strings"
)

// Kind selects which panel renderer a window hosts.
type Kind int

const (
	KindUnknown Kind = iota
	KindDashboard
	KindJobs
	KindSavings
	KindTasks
	KindCalendar
	KindNotes
	KindNetwork
	KindLearning
	KindTerminal
	KindSettings
	KindAchievements
	KindAnalytics
)

var kindNames = map[Kind]string{
	KindDashboard:    "dashboard",
	KindJobs:         "jobs",
	KindSavings:      "savings",
	KindTasks:        "tasks",
	KindCalendar:     "calendar",
	KindNotes:        "notes",
	KindNetwork:      "network",
	KindLearning:     "learning",
	KindTerminal:     "terminal",
	KindSettings:     "settings",
	KindAchievements: "achievements",
	KindAnalytics:    "analytics",
}

// String returns the string representation of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the known panel kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a name such as "jobs" into a Kind.
func ParseKind(s string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == needle {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown panel kind %q (valid: %s)", s, strings.Join(KindNames(), ", "))
}

// KindNames returns every valid kind name, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kindNames))
	for _, name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalText implements encoding.TextMarshaler so kinds travel as names in
// JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid panel kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Entry describes one launchable panel on the desktop.
type Entry struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Kind     Kind   `yaml:"kind" json:"kind"`
	Elevated bool   `yaml:"elevated,omitempty" json:"elevated,omitempty"`
}

// DefaultCatalog returns the built-in desktop icons in display order.
func DefaultCatalog() []Entry {
	return []Entry{
		{ID: "dashboard", Title: "Dashboard", Kind: KindDashboard},
		{ID: "jobs", Title: "Job Search", Kind: KindJobs},
		{ID: "savings", Title: "Financial Goals", Kind: KindSavings},
		{ID: "tasks", Title: "Task Manager", Kind: KindTasks},
		{ID: "calendar", Title: "Calendar", Kind: KindCalendar},
		{ID: "notes", Title: "Notes", Kind: KindNotes},
		{ID: "network", Title: "Network", Kind: KindNetwork},
		{ID: "learning", Title: "Learning Hub", Kind: KindLearning},
		{ID: "terminal", Title: "Terminal", Kind: KindTerminal, Elevated: true},
		{ID: "settings", Title: "Settings", Kind: KindSettings, Elevated: true},
		{ID: "achievements", Title: "Achievements", Kind: KindAchievements},
		{ID: "analytics", Title: "Analytics", Kind: KindAnalytics},
	}
}

// Lookup finds a catalog entry by id.
func Lookup(catalog []Entry, id string) (Entry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
