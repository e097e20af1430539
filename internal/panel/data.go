package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/1broseidon/thriveos/internal/notify"
)

// Job is one remote job listing.
type Job struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location,omitempty"`
	Salary   string   `json:"salary,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Source   string   `json:"source,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// Task is one task-manager entry.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Completed reports whether the task is done.
func (t Task) Completed() bool {
	return t.Status == "completed"
}

// Achievement is one unlockable badge.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Unlocked    bool   `json:"unlocked"`
	UnlockDate  string `json:"unlock_date,omitempty"`
}

// Savings is the savings-goal summary.
type Savings struct {
	CurrentAmount      float64 `json:"current_amount"`
	ProgressPercentage float64 `json:"progress_percentage"`
	MonthlyTarget      float64 `json:"monthly_target"`
	MonthsToGoal       float64 `json:"months_to_goal"`
	StreakBonus        float64 `json:"streak_bonus"`
	DailyStreak        int     `json:"daily_streak"`
}

// RemoteNotification is a notification pushed by the backend.
type RemoteNotification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Notification converts the backend shape into a queue entry. Unknown types
// become info; the backend timestamp is ignored so expiry runs on local time.
func (r RemoteNotification) Notification() notify.Notification {
	sev := notify.Severity(r.Type)
	if !sev.Valid() {
		sev = notify.SeverityInfo
	}
	return notify.Notification{ID: r.ID, Severity: sev, Title: r.Title, Message: r.Message}
}

// Data is everything the panels display, as last fetched from the backend.
// Stats and Applications are passed through untouched.
type Data struct {
	Jobs          []Job                      `json:"jobs"`
	Applications  []json.RawMessage          `json:"applications"`
	Savings       *Savings                   `json:"savings,omitempty"`
	Tasks         []Task                     `json:"tasks"`
	Stats         map[string]json.RawMessage `json:"stats,omitempty"`
	Achievements  []Achievement              `json:"achievements"`
	Notifications []RemoteNotification       `json:"-"`
	FetchedAt     time.Time                  `json:"fetched_at"`
}

// UnlockedCount returns how many achievements are unlocked.
func (d Data) UnlockedCount() int {
	n := 0
	for _, a := range d.Achievements {
		if a.Unlocked {
			n++
		}
	}
	return n
}

// CompletedTasks returns how many tasks are done.
func (d Data) CompletedTasks() int {
	n := 0
	for _, t := range d.Tasks {
		if t.Completed() {
			n++
		}
	}
	return n
}

// Fetch loads every panel collection. Individual endpoints that answer with
// an error status are skipped and the rest of the data is kept; a transport
// failure (backend unreachable) aborts the fetch.
func (c *Client) Fetch(ctx context.Context) (Data, error) {
	var data Data
	var jobs struct {
		Jobs []Job `json:"jobs"`
	}
	var apps struct {
		Applications []json.RawMessage `json:"applications"`
	}
	var savings Savings
	var tasks struct {
		Tasks []Task `json:"tasks"`
	}
	var stats map[string]json.RawMessage
	var achievements struct {
		Achievements []Achievement `json:"achievements"`
	}
	var notes struct {
		Notifications []RemoteNotification `json:"notifications"`
	}

	endpoints := []struct {
		path   string
		target any
		apply  func()
	}{
		{"/api/jobs", &jobs, func() { data.Jobs = jobs.Jobs }},
		{"/api/applications", &apps, func() { data.Applications = apps.Applications }},
		{"/api/savings", &savings, func() { s := savings; data.Savings = &s }},
		{"/api/tasks", &tasks, func() { data.Tasks = tasks.Tasks }},
		{"/api/dashboard/stats", &stats, func() { data.Stats = stats }},
		{"/api/achievements", &achievements, func() { data.Achievements = achievements.Achievements }},
		{"/api/realtime/notifications", &notes, func() { data.Notifications = notes.Notifications }},
	}

	for _, ep := range endpoints {
		resp, err := c.Get(ctx, ep.path, nil)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				continue
			}
			return Data{}, fmt.Errorf("fetch panel data: %w", err)
		}
		if err := resp.JSON(ep.target); err != nil {
			continue
		}
		ep.apply()
	}
	data.FetchedAt = time.Now()
	return data, nil
}
