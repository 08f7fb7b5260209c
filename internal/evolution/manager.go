package evolution

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/concord-ai/concord/pkg/docstore"
)

// Document paths for evolution state.
const (
	ThreadsDir       = ".ai/evolution/threads"
	ActiveIndexPath  = ".ai/evolution/active_threads.json"
	SystemActivePath = ".ai/evolution/system_active.json"
)

// ThreadPath returns the document path for a thread.
func ThreadPath(threadID string) string {
	return fmt.Sprintf("%s/%s.json", ThreadsDir, threadID)
}

// IndexEntry is the summary row stored in the active threads index.
type IndexEntry struct {
	ThreadID  string       `json:"thread_id"`
	Name      string       `json:"name"`
	Status    ThreadStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ActiveIndex is the active threads index document.
type ActiveIndex struct {
	LastUpdated time.Time    `json:"last_updated"`
	Threads     []IndexEntry `json:"threads"`
}

// Activation is the system activation marker document.
type Activation struct {
	ActivatedAt            time.Time `json:"activated_at"`
	ActivatedBy            string    `json:"activated_by"`
	Status                 string    `json:"status"`
	Version                string    `json:"version"`
	NextScheduledEvolution time.Time `json:"next_scheduled_evolution"`
}

// Manager persists evolution threads in the document store.
type Manager struct {
	store *docstore.Client
}

// NewManager creates a Manager backed by the given document store.
func NewManager(store *docstore.Client) *Manager {
	return &Manager{store: store}
}

// CreateThread creates a new evolution thread with the given initial goals
// and registers it in the active threads index. Goals without an id get a
// deterministic one derived from their name and the thread id. Returns the
// new thread id.
func (m *Manager) CreateThread(ctx context.Context, name, description, creator, strategy string, initialGoals []*Goal) (string, error) {
	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if creator == "" {
		missing = append(missing, "creator")
	}
	if strategy == "" {
		missing = append(missing, "strategy")
	}
	if len(missing) > 0 {
		return "", &ValidationError{Missing: missing}
	}

	threadID := ThreadID(name, creator, time.Now().UTC())
	thread := NewThread(threadID, name, description, creator, strategy)

	for _, g := range initialGoals {
		if g.GoalID == "" {
			g.GoalID = GoalID(g.Name, threadID)
		}
		thread.AddGoal(g)
	}

	if err := m.writeThread(ctx, thread, fmt.Sprintf("Create evolution thread: %s", name)); err != nil {
		return "", err
	}
	if err := m.refreshIndexEntry(ctx, thread); err != nil {
		return "", err
	}

	log.Printf("[Evolution] Created thread %s: %s", threadID, name)
	return threadID, nil
}

// Thread loads a thread by id. Fails with *NotFoundError when absent.
func (m *Manager) Thread(ctx context.Context, threadID string) (*Thread, error) {
	doc, err := m.store.GetDocument(ctx, ThreadPath(threadID))
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "thread", ID: threadID}
		}
		return nil, err
	}

	var thread Thread
	if err := json.Unmarshal([]byte(doc.Content), &thread); err != nil {
		return nil, fmt.Errorf("failed to parse thread %s: %w", threadID, err)
	}
	return &thread, nil
}

// UpdateThread persists a thread and refreshes its index entry.
func (m *Manager) UpdateThread(ctx context.Context, thread *Thread) error {
	if err := m.writeThread(ctx, thread, fmt.Sprintf("Update evolution thread: %s", thread.Name)); err != nil {
		return err
	}
	return m.refreshIndexEntry(ctx, thread)
}

// AddStep appends an evolution step to a thread.
//
// The participant is registered on the thread, and every goal named in
// goalsAdvanced that exists in the thread gains a fixed 10 points of
// progress, capped at 100, through the normal progress rules. Goal ids that
// match no goal in the thread are skipped. Returns the new step id.
func (m *Manager) AddStep(ctx context.Context, threadID, title, description string, goalsAdvanced []string, changesMade []map[string]interface{}, outcome, participant string) (string, error) {
	thread, err := m.Thread(ctx, threadID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	step := &Step{
		StepID:         StepID(title, threadID, now),
		Title:          title,
		Description:    description,
		GoalsAdvanced:  goalsAdvanced,
		ChangesMade:    changesMade,
		Outcome:        outcome,
		AIParticipants: []string{participant},
		Timestamp:      now,
	}

	thread.AddStep(step)
	thread.AddParticipant(participant)

	for _, goalID := range goalsAdvanced {
		for _, g := range thread.Goals {
			if g.GoalID == goalID {
				progress := g.Progress + 10
				if progress > 100 {
					progress = 100
				}
				thread.UpdateGoalProgress(goalID, progress, "")
			}
		}
	}

	if err := m.UpdateThread(ctx, thread); err != nil {
		return "", err
	}

	log.Printf("[Evolution] Added step %s to thread %s", step.StepID, threadID)
	return step.StepID, nil
}

// UpdateGoalProgress updates one goal's progress and persists the thread.
// Fails with *NotFoundError for a missing thread or goal.
func (m *Manager) UpdateGoalProgress(ctx context.Context, threadID, goalID string, progress int, status GoalStatus) error {
	thread, err := m.Thread(ctx, threadID)
	if err != nil {
		return err
	}

	if !thread.UpdateGoalProgress(goalID, progress, status) {
		return &NotFoundError{Resource: "goal", ID: goalID}
	}

	if err := m.UpdateThread(ctx, thread); err != nil {
		return err
	}

	log.Printf("[Evolution] Updated goal %s in thread %s to %d%%", goalID, threadID, progress)
	return nil
}

// ListActive returns progress summaries for every indexed thread that is not
// completed. A thread that is indexed but fails to load is logged and
// skipped rather than failing the listing.
func (m *Manager) ListActive(ctx context.Context) ([]ProgressSummary, error) {
	index, err := m.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	summaries := []ProgressSummary{}
	for _, entry := range index.Threads {
		if entry.Status == ThreadCompleted {
			continue
		}
		thread, err := m.Thread(ctx, entry.ThreadID)
		if err != nil {
			log.Printf("[Evolution] Error loading thread %s: %v", entry.ThreadID, err)
			continue
		}
		summaries = append(summaries, thread.ProgressSummary())
	}
	return summaries, nil
}

// Activate marks the evolution system active: it writes the activation
// marker and ensures the active threads index exists.
func (m *Manager) Activate(ctx context.Context) error {
	now := time.Now().UTC()

	index, err := m.loadIndex(ctx)
	if err != nil {
		return err
	}
	index.LastUpdated = now
	if err := m.writeJSON(ctx, ActiveIndexPath, "Activate self-evolution system", index); err != nil {
		return err
	}

	activation := &Activation{
		ActivatedAt:            now,
		ActivatedBy:            "concord",
		Status:                 "active",
		Version:                "1.0.0",
		NextScheduledEvolution: now.Add(24 * time.Hour),
	}
	if err := m.writeJSON(ctx, SystemActivePath, "Mark evolution system as active", activation); err != nil {
		return err
	}

	log.Printf("[Evolution] Evolution system activated")
	return nil
}

func (m *Manager) writeThread(ctx context.Context, thread *Thread, message string) error {
	return m.writeJSON(ctx, ThreadPath(thread.ThreadID), message, thread)
}

// refreshIndexEntry updates the thread's row in the active threads index,
// adding it when absent, and stamps the index last_updated.
func (m *Manager) refreshIndexEntry(ctx context.Context, thread *Thread) error {
	index, err := m.loadIndex(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	found := false
	for i := range index.Threads {
		if index.Threads[i].ThreadID == thread.ThreadID {
			index.Threads[i].Name = thread.Name
			index.Threads[i].Status = thread.Status
			index.Threads[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		index.Threads = append(index.Threads, IndexEntry{
			ThreadID:  thread.ThreadID,
			Name:      thread.Name,
			Status:    thread.Status,
			CreatedAt: thread.CreatedAt,
			UpdatedAt: now,
		})
	}
	index.LastUpdated = now

	return m.writeJSON(ctx, ActiveIndexPath, "Update active threads index", index)
}

// loadIndex loads the active threads index, returning an empty index when
// the document does not exist yet.
func (m *Manager) loadIndex(ctx context.Context) (*ActiveIndex, error) {
	doc, err := m.store.GetDocument(ctx, ActiveIndexPath)
	if err != nil {
		if docstore.IsNotFound(err) {
			return &ActiveIndex{Threads: []IndexEntry{}}, nil
		}
		return nil, err
	}

	var index ActiveIndex
	if err := json.Unmarshal([]byte(doc.Content), &index); err != nil {
		return nil, fmt.Errorf("failed to parse active threads index: %w", err)
	}
	if index.Threads == nil {
		index.Threads = []IndexEntry{}
	}
	return &index, nil
}

// On storage failure the content that would have been written is logged so
// operators can recover the document manually.
func (m *Manager) writeJSON(ctx context.Context, path, message string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := m.store.PutDocument(ctx, path, message, string(content)); err != nil {
		log.Printf("[Evolution] Error writing %s: %v", path, err)
		log.Printf("[Evolution] Would have written to %s:\n%s", path, content)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
