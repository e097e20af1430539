package panel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/thriveos/internal/notify"
)

// Action names a backend operation a panel can trigger.
type Action string

const (
	ActionJobsRefresh       Action = "jobs.refresh"
	ActionJobApply          Action = "jobs.apply"
	ActionSavingsUpdate     Action = "savings.update"
	ActionTaskCreate        Action = "tasks.create"
	ActionTaskComplete      Action = "tasks.complete"
	ActionAchievementUnlock Action = "achievements.unlock"
	ActionTerminalCommand   Action = "terminal.command"
)

var actionKinds = map[Action]Kind{
	ActionJobsRefresh:       KindJobs,
	ActionJobApply:          KindJobs,
	ActionSavingsUpdate:     KindSavings,
	ActionTaskCreate:        KindTasks,
	ActionTaskComplete:      KindTasks,
	ActionAchievementUnlock: KindAchievements,
	ActionTerminalCommand:   KindTerminal,
}

// Kind returns the panel the action belongs to.
func (a Action) Kind() Kind {
	return actionKinds[a]
}

// Actions returns every action name, sorted.
func Actions() []string {
	names := make([]string, 0, len(actionKinds))
	for a := range actionKinds {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// ErrInvalidAction is returned for malformed action requests. Nothing is sent
// to the backend and no notification is enqueued.
var ErrInvalidAction = errors.New("invalid panel action")

// ActionRequest carries the arguments of one action. Only the fields the
// action needs are read.
type ActionRequest struct {
	Action Action `json:"action"`
	// Target is the job, task or achievement id.
	Target      string  `json:"target,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Category    string  `json:"category,omitempty"`
	Command     string  `json:"command,omitempty"`
}

// ActionResult is the backend's answer to an action.
type ActionResult struct {
	Action  Action   `json:"action"`
	Message string   `json:"message,omitempty"`
	Output  []string `json:"output,omitempty"`
	// Notification is the id of the notification enqueued, if any.
	Notification string `json:"notification,omitempty"`
}

// Host runs panel actions against the backend and reports their outcome on
// the notification queue.
type Host struct {
	client   *Client
	notifier notify.Notifier
}

// NewHost creates a host. notifier may be nil.
func NewHost(client *Client, notifier notify.Notifier) *Host {
	return &Host{client: client, notifier: notifier}
}

// Client returns the backend client.
func (h *Host) Client() *Client {
	return h.client
}

type actionReply struct {
	Message string   `json:"message"`
	Output  []string `json:"output"`
}

// Run validates and executes an action. Backend failures enqueue an error
// notification and are returned.
func (h *Host) Run(ctx context.Context, req ActionRequest) (ActionResult, error) {
	if err := validateAction(req); err != nil {
		return ActionResult{}, err
	}

	resp, err := h.send(ctx, req)
	if err != nil {
		n := h.report(notify.Notification{
			ID:       "action_failed",
			Severity: notify.SeverityError,
			Title:    "Action failed",
			Message:  fmt.Sprintf("%s: %v", req.Action, err),
		})
		return ActionResult{Action: req.Action, Notification: n}, err
	}

	var reply actionReply
	// Replies without a JSON body are still successes.
	_ = resp.JSON(&reply)

	result := ActionResult{Action: req.Action, Message: reply.Message, Output: reply.Output}
	if n, ok := successNotification(req, reply.Message); ok {
		result.Notification = h.report(n)
	}
	return result, nil
}

func (h *Host) send(ctx context.Context, req ActionRequest) (*Response, error) {
	target := url.PathEscape(req.Target)
	switch req.Action {
	case ActionJobsRefresh:
		return h.client.Post(ctx, "/api/jobs/refresh", nil, nil)
	case ActionJobApply:
		return h.client.Post(ctx, "/api/jobs/"+target+"/apply", nil, nil)
	case ActionSavingsUpdate:
		q := url.Values{"amount": {strconv.FormatFloat(req.Amount, 'f', -1, 64)}}
		return h.client.Post(ctx, "/api/savings/update", q, nil)
	case ActionTaskCreate:
		return h.client.Post(ctx, "/api/tasks", nil, map[string]string{
			"title":       req.Title,
			"description": req.Description,
			"priority":    req.Priority,
			"category":    req.Category,
		})
	case ActionTaskComplete:
		return h.client.Put(ctx, "/api/tasks/"+target+"/complete", nil, nil)
	case ActionAchievementUnlock:
		return h.client.Post(ctx, "/api/achievements/"+target+"/unlock", nil, nil)
	case ActionTerminalCommand:
		return h.client.Post(ctx, "/api/terminal/command", nil, map[string]string{"command": req.Command})
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, req.Action)
}

func (h *Host) report(n notify.Notification) string {
	if h.notifier == nil {
		return ""
	}
	return h.notifier.Enqueue(n).ID
}

func validateAction(req ActionRequest) error {
	switch req.Action {
	case ActionJobsRefresh:
	case ActionJobApply, ActionTaskComplete, ActionAchievementUnlock:
		if strings.TrimSpace(req.Target) == "" {
			return fmt.Errorf("%w: %s needs a target id", ErrInvalidAction, req.Action)
		}
	case ActionSavingsUpdate:
		if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
			return fmt.Errorf("%w: savings amount must be a number", ErrInvalidAction)
		}
	case ActionTaskCreate:
		if strings.TrimSpace(req.Title) == "" {
			return fmt.Errorf("%w: task title is required", ErrInvalidAction)
		}
	case ActionTerminalCommand:
		if strings.TrimSpace(req.Command) == "" {
			return fmt.Errorf("%w: empty command", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown action %q (valid: %s)", ErrInvalidAction, req.Action, strings.Join(Actions(), ", "))
	}
	return nil
}

func orDefault(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// successNotification builds the announcement for a completed action.
// Ordinary terminal commands print their output instead of notifying.
func successNotification(req ActionRequest, msg string) (notify.Notification, bool) {
	switch req.Action {
	case ActionJobsRefresh:
		return notify.Notification{
			ID:       "jobs_refresh",
			Severity: notify.SeveritySuccess,
			Title:    "Jobs refreshed",
			Message:  orDefault(msg, "Jobs updated successfully") + " (+5 points)",
		}, true
	case ActionJobApply:
		return notify.Notification{
			ID:       "apply_" + req.Target,
			Severity: notify.SeveritySuccess,
			Title:    "Application sent",
			Message:  orDefault(msg, "Application recorded") + " (+15 points)",
		}, true
	case ActionSavingsUpdate:
		return notify.Notification{
			ID:       "savings_update",
			Severity: notify.SeveritySuccess,
			Title:    "Savings updated",
			Message:  orDefault(msg, "Savings updated successfully") + " (+10 points)",
		}, true
	case ActionTaskCreate:
		return notify.Notification{
			ID:       "task_created",
			Severity: notify.SeveritySuccess,
			Title:    "Task created",
			Message:  orDefault(msg, fmt.Sprintf("Added %q", req.Title)),
		}, true
	case ActionTaskComplete:
		return notify.Notification{
			ID:       "task_complete_" + req.Target,
			Severity: notify.SeveritySuccess,
			Title:    "Task completed",
			Message:  orDefault(msg, "Nice work"),
		}, true
	case ActionAchievementUnlock:
		return notify.Notification{
			ID:       "achievement_" + req.Target,
			Severity: notify.SeverityAchievement,
			Title:    "Achievement unlocked",
			Message:  orDefault(msg, req.Target),
		}, true
	case ActionTerminalCommand:
		if strings.EqualFold(strings.TrimSpace(req.Command), "konami") {
			return notify.Notification{
				ID:       "konami",
				Severity: notify.SeverityAchievement,
				Title:    "Konami code activated",
				Message:  "Ultimate productivity boost! +100 points",
			}, true
		}
	}
	return notify.Notification{}, false
}
