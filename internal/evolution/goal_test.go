package evolution

import (
	"testing"
	"time"
)

func TestClampPriority(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{10, 10},
		{15, 10},
	}
	for _, tt := range tests {
		if got := ClampPriority(tt.in); got != tt.want {
			t.Errorf("ClampPriority(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewGoal_Defaults(t *testing.T) {
	g := NewGoal("goal_abc", "name", "desc", []string{"done"}, 0, nil)
	if g.Priority != 5 {
		t.Errorf("default priority = %d, want 5", g.Priority)
	}
	if g.Status != GoalPending {
		t.Errorf("status = %s, want pending", g.Status)
	}
	if g.Progress != 0 {
		t.Errorf("progress = %d, want 0", g.Progress)
	}
}

func TestGoal_UpdateProgress(t *testing.T) {
	t.Run("clamps out of range progress", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(150, "")
		if g.Progress != 100 {
			t.Errorf("progress = %d, want 100", g.Progress)
		}

		g2 := NewGoal("g2", "n", "d", nil, 5, nil)
		g2.UpdateProgress(-20, "")
		if g2.Progress != 0 {
			t.Errorf("progress = %d, want 0", g2.Progress)
		}
	})

	t.Run("positive progress starts a pending goal", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(30, "")
		if g.Status != GoalInProgress {
			t.Errorf("status = %s, want in_progress", g.Status)
		}
		if g.StartedAt == nil {
			t.Error("started_at not stamped")
		}
	})

	t.Run("full progress completes the goal", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(100, "")
		if g.Status != GoalCompleted {
			t.Errorf("status = %s, want completed", g.Status)
		}
		if g.CompletedAt == nil {
			t.Fatal("completed_at not stamped")
		}
	})

	t.Run("repeat completion keeps the original timestamp", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(100, "")
		first := *g.CompletedAt

		time.Sleep(5 * time.Millisecond)
		g.UpdateProgress(100, "")
		if !g.CompletedAt.Equal(first) {
			t.Errorf("completed_at moved from %v to %v", first, *g.CompletedAt)
		}
	})

	t.Run("explicit status overrides derivation", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(100, GoalBlocked)
		if g.Status != GoalBlocked {
			t.Errorf("status = %s, want blocked", g.Status)
		}
		if g.CompletedAt != nil {
			t.Error("completed_at stamped for a blocked goal")
		}
	})

	t.Run("explicit completed forces full progress", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		g.UpdateProgress(60, GoalCompleted)
		if g.Progress != 100 {
			t.Errorf("progress = %d, want 100", g.Progress)
		}
		if g.Status != GoalCompleted {
			t.Errorf("status = %s, want completed", g.Status)
		}
		if g.CompletedAt == nil {
			t.Error("completed_at not stamped")
		}
	})

	t.Run("always refreshes last_updated", func(t *testing.T) {
		g := NewGoal("g", "n", "d", nil, 5, nil)
		before := g.LastUpdated
		time.Sleep(5 * time.Millisecond)
		g.UpdateProgress(0, "")
		if !g.LastUpdated.After(before) {
			t.Error("last_updated not refreshed")
		}
	})
}

func TestGoalStatus_Validate(t *testing.T) {
	for _, s := range []GoalStatus{GoalPending, GoalInProgress, GoalCompleted, GoalBlocked} {
		if err := s.Validate(); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", s, err)
		}
	}
	if err := GoalStatus("bogus").Validate(); err == nil {
		t.Error("Validate(bogus) = nil, want error")
	}
}
