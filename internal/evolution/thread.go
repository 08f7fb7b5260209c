package evolution

import (
	"sort"
	"time"
)

// ThreadStatus represents the lifecycle state of a thread.
type ThreadStatus string

const (
	ThreadActive    ThreadStatus = "active"
	ThreadPaused    ThreadStatus = "paused"
	ThreadCompleted ThreadStatus = "completed"
)

// Thread is a self-evolving unit of work: a set of goals plus the
// chronological step history that advances them.
type Thread struct {
	ThreadID       string       `json:"thread_id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Creator        string       `json:"creator"`
	Strategy       string       `json:"strategy"`
	Status         ThreadStatus `json:"status"`
	Goals          []*Goal      `json:"goals"`
	Steps          []*Step      `json:"steps"`
	CreatedAt      time.Time    `json:"created_at"`
	LastEvolution  *time.Time   `json:"last_evolution,omitempty"`
	AIParticipants []string     `json:"ai_participants"`
	Repository     string       `json:"repository"`
}

// NewThread creates an active thread with the creator as first participant.
func NewThread(threadID, name, description, creator, strategy string) *Thread {
	return &Thread{
		ThreadID:       threadID,
		Name:           name,
		Description:    description,
		Creator:        creator,
		Strategy:       strategy,
		Status:         ThreadActive,
		Goals:          []*Goal{},
		Steps:          []*Step{},
		CreatedAt:      time.Now().UTC(),
		AIParticipants: []string{creator},
		Repository:     "concord-core",
	}
}

// AddGoal appends a goal to the thread, claiming it for this thread.
// Goals keep insertion order.
func (t *Thread) AddGoal(g *Goal) {
	g.EvolutionThread = t.ThreadID
	t.Goals = append(t.Goals, g)
}

// AddStep appends a step to the thread and advances last_evolution to the
// step's timestamp.
func (t *Thread) AddStep(s *Step) {
	s.EvolutionThread = t.ThreadID
	t.Steps = append(t.Steps, s)
	ts := s.Timestamp
	t.LastEvolution = &ts
}

// UpdateGoalProgress updates the named goal through the progress rules.
// Returns false if the goal is not in this thread.
func (t *Thread) UpdateGoalProgress(goalID string, progress int, status GoalStatus) bool {
	for _, g := range t.Goals {
		if g.GoalID == goalID {
			g.UpdateProgress(progress, status)
			return true
		}
	}
	return false
}

// AddParticipant registers an AI participant. Adding an existing participant
// is a no-op: the participant list has set semantics.
func (t *Thread) AddParticipant(aiID string) {
	for _, p := range t.AIParticipants {
		if p == aiID {
			return
		}
	}
	t.AIParticipants = append(t.AIParticipants, aiID)
}

// NextGoals returns the goals that should be worked on next.
//
// In-progress goals always take precedence, sorted by priority descending.
// Only when none are in progress are pending goals considered, and a pending
// goal is eligible only when every listed dependency id belongs to a
// completed goal in this thread; a dependency id that matches no goal counts
// as unmet. Both sorts are stable, so equal priorities keep goal insertion
// order.
func (t *Thread) NextGoals() []*Goal {
	var inProgress []*Goal
	for _, g := range t.Goals {
		if g.Status == GoalInProgress {
			inProgress = append(inProgress, g)
		}
	}
	if len(inProgress) > 0 {
		sortByPriority(inProgress)
		return inProgress
	}

	completed := make(map[string]bool)
	for _, g := range t.Goals {
		if g.Status == GoalCompleted {
			completed[g.GoalID] = true
		}
	}

	var eligible []*Goal
	for _, g := range t.Goals {
		if g.Status != GoalPending {
			continue
		}
		met := true
		for _, dep := range g.Dependencies {
			if !completed[dep] {
				met = false
				break
			}
		}
		if met {
			eligible = append(eligible, g)
		}
	}
	sortByPriority(eligible)
	return eligible
}

func sortByPriority(goals []*Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].Priority > goals[j].Priority
	})
}

// ProgressSummary is a compact view of a thread's progress, used for
// listings and the API.
type ProgressSummary struct {
	ThreadID        string       `json:"thread_id"`
	Name            string       `json:"name"`
	TotalGoals      int          `json:"total_goals"`
	CompletedGoals  int          `json:"completed_goals"`
	InProgressGoals int          `json:"in_progress_goals"`
	BlockedGoals    int          `json:"blocked_goals"`
	PendingGoals    int          `json:"pending_goals"`
	AverageProgress float64      `json:"average_progress"`
	TotalSteps      int          `json:"total_steps"`
	LastEvolution   *time.Time   `json:"last_evolution,omitempty"`
	Status          ThreadStatus `json:"status"`
}

// ProgressSummary computes the thread's progress summary.
func (t *Thread) ProgressSummary() ProgressSummary {
	summary := ProgressSummary{
		ThreadID:      t.ThreadID,
		Name:          t.Name,
		TotalGoals:    len(t.Goals),
		TotalSteps:    len(t.Steps),
		LastEvolution: t.LastEvolution,
		Status:        t.Status,
	}

	totalProgress := 0
	for _, g := range t.Goals {
		totalProgress += g.Progress
		switch g.Status {
		case GoalCompleted:
			summary.CompletedGoals++
		case GoalInProgress:
			summary.InProgressGoals++
		case GoalBlocked:
			summary.BlockedGoals++
		case GoalPending:
			summary.PendingGoals++
		}
	}
	if len(t.Goals) > 0 {
		summary.AverageProgress = float64(totalProgress) / float64(len(t.Goals))
	}
	return summary
}
