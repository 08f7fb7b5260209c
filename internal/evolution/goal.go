// Package evolution implements self-evolving threads: long-lived units of
// work with prioritised goals, an append-only step history, and a background
// runner that periodically advances active threads.
//
// Thread state lives in JSON documents under .ai/evolution/ in the document
// store. Goal progress transitions are pure model operations on Thread and
// Goal; the Manager handles persistence.
package evolution

import (
	"fmt"
	"time"
)

// GoalStatus represents the lifecycle state of a goal.
type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalBlocked    GoalStatus = "blocked"
)

// Validate checks if the goal status is a valid value.
func (s GoalStatus) Validate() error {
	switch s {
	case GoalPending, GoalInProgress, GoalCompleted, GoalBlocked:
		return nil
	default:
		return fmt.Errorf("invalid goal status: %s", s)
	}
}

// Goal is a strategic goal within an evolution thread.
// Priority runs 1 (lowest) to 10 (highest); progress runs 0 to 100.
type Goal struct {
	GoalID          string     `json:"goal_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	SuccessCriteria []string   `json:"success_criteria"`
	Priority        int        `json:"priority"`
	Dependencies    []string   `json:"dependencies"`
	EstimatedSteps  int        `json:"estimated_steps,omitempty"`
	Status          GoalStatus `json:"status"`
	Progress        int        `json:"progress"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastUpdated     time.Time  `json:"last_updated"`
	EvolutionThread string     `json:"evolution_thread,omitempty"`
}

// ClampPriority constrains a priority to the valid 1-10 range.
func ClampPriority(priority int) int {
	if priority < 1 {
		return 1
	}
	if priority > 10 {
		return 10
	}
	return priority
}

// NewGoal creates a pending goal with clamped priority.
// A zero priority gets the default of 5.
func NewGoal(goalID, name, description string, successCriteria []string, priority int, dependencies []string) *Goal {
	if priority == 0 {
		priority = 5
	}
	now := time.Now().UTC()
	return &Goal{
		GoalID:          goalID,
		Name:            name,
		Description:     description,
		SuccessCriteria: successCriteria,
		Priority:        ClampPriority(priority),
		Dependencies:    dependencies,
		Status:          GoalPending,
		Progress:        0,
		CreatedAt:       now,
		LastUpdated:     now,
	}
}

// UpdateProgress advances the goal's progress and derives its status.
//
// Progress is clamped to [0,100]. When explicitStatus is non-empty it wins
// over derivation; an explicit completed additionally forces progress to 100
// and stamps completed_at if unset. Otherwise: 100 derives completed
// (completed_at stamped once, a repeat update leaves it untouched), and any
// positive progress moves a pending goal to in_progress (started_at stamped
// once). last_updated is always refreshed.
func (g *Goal) UpdateProgress(progress int, explicitStatus GoalStatus) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	g.Progress = progress

	now := time.Now().UTC()
	g.LastUpdated = now

	if explicitStatus != "" {
		g.Status = explicitStatus
		if explicitStatus == GoalCompleted {
			g.Progress = 100
			if g.CompletedAt == nil {
				g.CompletedAt = &now
			}
		}
		return
	}

	if g.Progress == 100 {
		g.Status = GoalCompleted
		if g.CompletedAt == nil {
			g.CompletedAt = &now
		}
		return
	}

	if g.Progress > 0 && g.Status == GoalPending {
		g.Status = GoalInProgress
		if g.StartedAt == nil {
			g.StartedAt = &now
		}
	}
}
