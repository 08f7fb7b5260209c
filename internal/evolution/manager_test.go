package evolution

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concord-ai/concord/pkg/docstore"
)

func setupManager(t *testing.T) *Manager {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := docstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewManager(store)
}

func TestManager_CreateThread(t *testing.T) {
	ctx := context.Background()

	t.Run("creates thread with goals", func(t *testing.T) {
		m := setupManager(t)

		goals := []*Goal{
			NewGoal("", "first goal", "desc", []string{"works"}, 8, nil),
			NewGoal("goal_custom00001", "second goal", "desc", nil, 3, nil),
		}
		id, err := m.CreateThread(ctx, "test thread", "desc", "claude", "incremental", goals)
		require.NoError(t, err)
		assert.Contains(t, id, "thread_")

		thread, err := m.Thread(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "test thread", thread.Name)
		assert.Equal(t, ThreadActive, thread.Status)
		assert.Equal(t, []string{"claude"}, thread.AIParticipants)
		require.Len(t, thread.Goals, 2)
		assert.Equal(t, GoalID("first goal", id), thread.Goals[0].GoalID)
		assert.Equal(t, "goal_custom00001", thread.Goals[1].GoalID)
		assert.Equal(t, id, thread.Goals[0].EvolutionThread)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		m := setupManager(t)

		_, err := m.CreateThread(ctx, "", "desc", "", "incremental", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Missing, "name")
		assert.Contains(t, verr.Missing, "creator")
	})

	t.Run("registers the thread in the index", func(t *testing.T) {
		m := setupManager(t)

		id, err := m.CreateThread(ctx, "indexed thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		active, err := m.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, id, active[0].ThreadID)
	})
}

func TestManager_Thread_NotFound(t *testing.T) {
	m := setupManager(t)

	_, err := m.Thread(context.Background(), "thread_missing0000")
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "thread", nferr.Resource)
}

func TestManager_AddStep(t *testing.T) {
	ctx := context.Background()

	t.Run("appends step and advances goals", func(t *testing.T) {
		m := setupManager(t)

		goals := []*Goal{NewGoal("", "goal a", "desc", nil, 5, nil)}
		threadID, err := m.CreateThread(ctx, "stepped thread", "desc", "claude", "incremental", goals)
		require.NoError(t, err)
		goalID := GoalID("goal a", threadID)

		stepID, err := m.AddStep(ctx, threadID, "improve things", "made it better",
			[]string{goalID}, []map[string]interface{}{{"file": "main.go"}}, "it worked", "gpt")
		require.NoError(t, err)
		assert.Contains(t, stepID, "step_")

		thread, err := m.Thread(ctx, threadID)
		require.NoError(t, err)
		require.Len(t, thread.Steps, 1)
		assert.Equal(t, stepID, thread.Steps[0].StepID)
		assert.NotNil(t, thread.LastEvolution)
		assert.Contains(t, thread.AIParticipants, "gpt")

		// One step advances the goal a fixed 10 points and starts it.
		assert.Equal(t, 10, thread.Goals[0].Progress)
		assert.Equal(t, GoalInProgress, thread.Goals[0].Status)
	})

	t.Run("progress increments cap at 100 and complete the goal", func(t *testing.T) {
		m := setupManager(t)

		goals := []*Goal{NewGoal("", "nearly done", "desc", nil, 5, nil)}
		threadID, err := m.CreateThread(ctx, "capped thread", "desc", "claude", "incremental", goals)
		require.NoError(t, err)
		goalID := GoalID("nearly done", threadID)

		require.NoError(t, m.UpdateGoalProgress(ctx, threadID, goalID, 95, ""))

		_, err = m.AddStep(ctx, threadID, "final push", "finished it", []string{goalID}, nil, "done", "claude")
		require.NoError(t, err)

		thread, err := m.Thread(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, 100, thread.Goals[0].Progress)
		assert.Equal(t, GoalCompleted, thread.Goals[0].Status)
		assert.NotNil(t, thread.Goals[0].CompletedAt)
	})

	t.Run("unknown advanced goal ids are skipped", func(t *testing.T) {
		m := setupManager(t)

		threadID, err := m.CreateThread(ctx, "empty thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		_, err = m.AddStep(ctx, threadID, "noop step", "nothing advanced",
			[]string{"goal_nope"}, nil, "ok", "claude")
		require.NoError(t, err)

		thread, err := m.Thread(ctx, threadID)
		require.NoError(t, err)
		assert.Len(t, thread.Steps, 1)
	})

	t.Run("missing thread fails", func(t *testing.T) {
		m := setupManager(t)

		_, err := m.AddStep(ctx, "thread_missing0000", "t", "d", nil, nil, "o", "claude")
		var nferr *NotFoundError
		require.ErrorAs(t, err, &nferr)
	})
}

func TestManager_UpdateGoalProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the update", func(t *testing.T) {
		m := setupManager(t)

		goals := []*Goal{NewGoal("", "goal a", "desc", nil, 5, nil)}
		threadID, err := m.CreateThread(ctx, "progress thread", "desc", "claude", "incremental", goals)
		require.NoError(t, err)
		goalID := GoalID("goal a", threadID)

		require.NoError(t, m.UpdateGoalProgress(ctx, threadID, goalID, 60, ""))

		thread, err := m.Thread(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, 60, thread.Goals[0].Progress)
		assert.Equal(t, GoalInProgress, thread.Goals[0].Status)
	})

	t.Run("missing goal fails", func(t *testing.T) {
		m := setupManager(t)

		threadID, err := m.CreateThread(ctx, "goalless thread", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		err = m.UpdateGoalProgress(ctx, threadID, "goal_nope", 60, "")
		var nferr *NotFoundError
		require.ErrorAs(t, err, &nferr)
		assert.Equal(t, "goal", nferr.Resource)
	})
}

func TestManager_ListActive(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)

	id1, err := m.CreateThread(ctx, "running thread", "desc", "claude", "incremental", nil)
	require.NoError(t, err)

	id2, err := m.CreateThread(ctx, "finished thread", "desc", "claude", "incremental", nil)
	require.NoError(t, err)

	// Complete the second thread so the listing drops it.
	thread, err := m.Thread(ctx, id2)
	require.NoError(t, err)
	thread.Status = ThreadCompleted
	require.NoError(t, m.UpdateThread(ctx, thread))

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id1, active[0].ThreadID)
}

func TestManager_Activate(t *testing.T) {
	ctx := context.Background()
	m := setupManager(t)

	require.NoError(t, m.Activate(ctx))

	// Activation must not clobber an existing index.
	_, err := m.CreateThread(ctx, "post activation", "desc", "claude", "incremental", nil)
	require.NoError(t, err)
	require.NoError(t, m.Activate(ctx))

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
