package evolution

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Entity ids are content-derived: a fixed prefix plus the first 12 hex
// characters of a sha256 over the identifying fields. The timestamp input
// makes thread and step ids unique per creation; goal ids are deterministic
// within a thread so the same goal name maps to the same id.

func shortHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)[:12]
}

// ThreadID derives a thread id from its name, creator, and creation time.
func ThreadID(name, creator string, now time.Time) string {
	return "thread_" + shortHash(fmt.Sprintf("%s_%s_%s", name, creator, now.Format(time.RFC3339Nano)))
}

// GoalID derives a goal id from its name and owning thread.
func GoalID(name, threadID string) string {
	return "goal_" + shortHash(fmt.Sprintf("%s_%s", name, threadID))
}

// StepID derives a step id from its title, thread, and creation time.
func StepID(title, threadID string, now time.Time) string {
	return "step_" + shortHash(fmt.Sprintf("%s_%s_%s", title, threadID, now.Format(time.RFC3339Nano)))
}
