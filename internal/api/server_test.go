package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concord-ai/concord/internal/discovery"
	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/hub"
	"github.com/concord-ai/concord/internal/protocol"
	"github.com/concord-ai/concord/pkg/docstore"
)

type testServer struct {
	*Server
	store      *docstore.Client
	harmonizer *protocol.Harmonizer
	manager    *evolution.Manager
	handler    http.Handler
}

func setupServer(t *testing.T) *testServer {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := docstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	harmonizer := protocol.NewHarmonizer(store)
	require.NoError(t, harmonizer.Initialize(context.Background()))

	manager := evolution.NewManager(store)

	hubStore, err := hub.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hubStore.Close() })

	srv := NewServer(store, harmonizer, manager, hubStore, discovery.NewTrails(store), ":0")
	return &testServer{
		Server:     srv,
		store:      store,
		harmonizer: harmonizer,
		manager:    manager,
		handler:    srv.Handler(),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestServer_Health(t *testing.T) {
	ts := setupServer(t)

	rec, payload := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, "connected", payload["redis"])
}

func TestServer_Protocols(t *testing.T) {
	t.Run("list includes the default protocol", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/protocols", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, payload["success"])

		protocols := payload["protocols"].([]interface{})
		require.Len(t, protocols, 1)
		first := protocols[0].(map[string]interface{})
		assert.Equal(t, protocol.DefaultSchemaID, first["schema_id"])
		assert.Equal(t, true, first["is_primary"])
	})

	t.Run("register returns 201 with derived id", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/protocols/register", map[string]interface{}{
			"registering_ai": "claude",
			"schema": map[string]interface{}{
				"name":           "Test Protocol",
				"version":        "1.0",
				"author":         "claude",
				"description":    "a protocol",
				"endpoints":      map[string]interface{}{"main": "/test"},
				"message_format": map[string]interface{}{"structure": "json"},
				"capabilities":   []string{"testing"},
			},
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "test_protocol_1_0", payload["schema_id"])
	})

	t.Run("register with missing fields returns 400", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/protocols/register", map[string]interface{}{
			"registering_ai": "claude",
			"schema":         map[string]interface{}{"name": "Incomplete"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, payload["success"])
		assert.Contains(t, payload["error"], "version")
	})

	t.Run("duplicate registration returns 409", func(t *testing.T) {
		ts := setupServer(t)

		schema := map[string]interface{}{
			"name":           "Dup Protocol",
			"version":        "1.0",
			"author":         "claude",
			"description":    "a protocol",
			"endpoints":      map[string]interface{}{"main": "/test"},
			"message_format": map[string]interface{}{"structure": "json"},
			"capabilities":   []string{"testing"},
		}
		body := map[string]interface{}{"registering_ai": "claude", "schema": schema}

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/protocols/register", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, _ = ts.do(t, http.MethodPost, "/ai-collaboration/protocols/register", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("usage for unknown schema returns 404", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/protocols/usage", map[string]interface{}{
			"schema_id": "nope_1_0",
			"using_ai":  "claude",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("set and get primary", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/protocols/primary", map[string]interface{}{
			"schema_id":  protocol.DefaultSchemaID,
			"reason":     "operator choice",
			"decided_by": "admin",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/protocols/primary", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		primary := payload["primary"].(map[string]interface{})
		assert.Equal(t, protocol.DefaultSchemaID, primary["schema_id"])
		assert.Equal(t, "operator choice", primary["primary_reason"])
	})

	t.Run("log lists events", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/protocols/log", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		events := payload["events"].([]interface{})
		assert.NotEmpty(t, events)
	})
}

func TestServer_Threads(t *testing.T) {
	t.Run("create and fetch a thread", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/threads/create", map[string]interface{}{
			"name":        "api thread",
			"description": "created over http",
			"creator":     "claude",
			"strategy":    "incremental",
			"initial_goals": []map[string]interface{}{
				{"name": "first goal", "description": "desc", "priority": 8},
			},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		threadID := payload["thread_id"].(string)

		rec, payload = ts.do(t, http.MethodGet, "/ai-collaboration/threads/"+threadID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		thread := payload["thread"].(map[string]interface{})
		assert.Equal(t, "api thread", thread["name"])
		goals := thread["goals"].([]interface{})
		require.Len(t, goals, 1)
	})

	t.Run("create with missing fields returns 400", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/threads/create", map[string]interface{}{
			"name": "incomplete",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, payload["error"], "creator")
	})

	t.Run("missing thread returns 404", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodGet, "/ai-collaboration/threads/thread_missing0000", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("add step advances goals", func(t *testing.T) {
		ts := setupServer(t)
		ctx := context.Background()

		goals := []*evolution.Goal{evolution.NewGoal("", "goal a", "desc", nil, 5, nil)}
		threadID, err := ts.manager.CreateThread(ctx, "stepped", "desc", "claude", "incremental", goals)
		require.NoError(t, err)
		goalID := evolution.GoalID("goal a", threadID)

		rec, payload := ts.do(t, http.MethodPost,
			fmt.Sprintf("/ai-collaboration/threads/%s/steps", threadID), map[string]interface{}{
				"title":          "a step",
				"description":    "did work",
				"goals_advanced": []string{goalID},
				"outcome":        "progress",
				"ai_participant": "gpt",
			})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, payload["step_id"], "step_")

		thread, err := ts.manager.Thread(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, 10, thread.Goals[0].Progress)
	})

	t.Run("goal progress with invalid status returns 400", func(t *testing.T) {
		ts := setupServer(t)
		ctx := context.Background()

		threadID, err := ts.manager.CreateThread(ctx, "progress", "desc", "claude", "incremental",
			[]*evolution.Goal{evolution.NewGoal("", "g", "d", nil, 5, nil)})
		require.NoError(t, err)
		goalID := evolution.GoalID("g", threadID)

		rec, _ := ts.do(t, http.MethodPost,
			fmt.Sprintf("/ai-collaboration/threads/%s/goals/%s/progress", threadID, goalID),
			map[string]interface{}{"progress": 50, "status": "bogus"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("goal progress updates", func(t *testing.T) {
		ts := setupServer(t)
		ctx := context.Background()

		threadID, err := ts.manager.CreateThread(ctx, "progress2", "desc", "claude", "incremental",
			[]*evolution.Goal{evolution.NewGoal("", "g", "d", nil, 5, nil)})
		require.NoError(t, err)
		goalID := evolution.GoalID("g", threadID)

		rec, _ := ts.do(t, http.MethodPost,
			fmt.Sprintf("/ai-collaboration/threads/%s/goals/%s/progress", threadID, goalID),
			map[string]interface{}{"progress": 100})
		assert.Equal(t, http.StatusOK, rec.Code)

		thread, err := ts.manager.Thread(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, evolution.GoalCompleted, thread.Goals[0].Status)
	})

	t.Run("list returns active threads", func(t *testing.T) {
		ts := setupServer(t)

		_, err := ts.manager.CreateThread(context.Background(), "listed", "desc", "claude", "incremental", nil)
		require.NoError(t, err)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/threads", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		threads := payload["threads"].([]interface{})
		assert.Len(t, threads, 1)
	})
}

func TestServer_Hub(t *testing.T) {
	t.Run("contribute", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/contribute", map[string]interface{}{
			"ai_identifier":     "claude",
			"contribution_type": "insight",
			"content":           "a useful insight",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, float64(1), payload["contribution_id"])
	})

	t.Run("contribute with missing fields returns 400", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/contribute", map[string]interface{}{
			"ai_identifier": "claude",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("discussions round trip", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/discussions/start", map[string]interface{}{
			"ai_identifier":   "claude",
			"topic":           "naming",
			"initial_message": "what should we call this",
			"tags":            []string{"design"},
		})
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/discussions/recent?limit=5", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		discussions := payload["discussions"].([]interface{})
		require.Len(t, discussions, 1)
		first := discussions[0].(map[string]interface{})
		assert.Equal(t, "naming", first["topic"])
	})

	t.Run("evolution round trip", func(t *testing.T) {
		ts := setupServer(t)

		rec, _ := ts.do(t, http.MethodPost, "/ai-collaboration/evolution/record", map[string]interface{}{
			"version":         "1.0.0",
			"summary":         "first release",
			"ai_contributors": []string{"claude"},
			"changes":         []map[string]interface{}{{"file": "main.go"}},
		})
		assert.Equal(t, http.StatusCreated, rec.Code)

		rec, payload := ts.do(t, http.MethodGet, "/ai-collaboration/evolution/history", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		history := payload["history"].([]interface{})
		require.Len(t, history, 1)
		first := history[0].(map[string]interface{})
		assert.Equal(t, "1.0.0", first["version"])

		// Recording also leaves a discovery marker.
		doc, err := ts.store.GetDocument(context.Background(), ".ai/markers/evolution_1_0_0.json")
		require.NoError(t, err)
		assert.Contains(t, doc.Content, "first release")
	})

	t.Run("message marker", func(t *testing.T) {
		ts := setupServer(t)

		rec, payload := ts.do(t, http.MethodPost, "/ai-collaboration/messages", map[string]interface{}{
			"ai_identifier": "claude",
			"message":       "hello from the api",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, payload["message_id"], "msg_")

		rec, _ = ts.do(t, http.MethodPost, "/ai-collaboration/messages", map[string]interface{}{
			"ai_identifier": "claude",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_InvalidJSONBody(t *testing.T) {
	ts := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ai-collaboration/contribute", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
