package evolution

import "time"

// Step records a single unit of evolution work performed against a thread.
// Steps are immutable once added: the step history is append-only.
type Step struct {
	StepID          string                   `json:"step_id"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	GoalsAdvanced   []string                 `json:"goals_advanced"`
	ChangesMade     []map[string]interface{} `json:"changes_made"`
	Outcome         string                   `json:"outcome"`
	AIParticipants  []string                 `json:"ai_participants"`
	Timestamp       time.Time                `json:"timestamp"`
	EvolutionThread string                   `json:"evolution_thread,omitempty"`
}
