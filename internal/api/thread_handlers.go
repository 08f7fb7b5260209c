package api

import (
	"net/http"

	"github.com/concord-ai/concord/internal/evolution"
)

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.manager.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"threads": summaries,
	})
}

type createThreadRequest struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Creator      string           `json:"creator"`
	Strategy     string           `json:"strategy"`
	InitialGoals []goalDefinition `json:"initial_goals,omitempty"`
}

type goalDefinition struct {
	GoalID          string   `json:"goal_id,omitempty"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	SuccessCriteria []string `json:"success_criteria"`
	Priority        int      `json:"priority,omitempty"`
	Dependencies    []string `json:"dependencies,omitempty"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	goals := make([]*evolution.Goal, 0, len(req.InitialGoals))
	for _, def := range req.InitialGoals {
		g := evolution.NewGoal(def.GoalID, def.Name, def.Description, def.SuccessCriteria, def.Priority, def.Dependencies)
		goals = append(goals, g)
	}

	threadID, err := s.manager.CreateThread(r.Context(), req.Name, req.Description, req.Creator, req.Strategy, goals)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"thread_id": threadID,
	})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.manager.Thread(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"thread": thread,
	})
}

type addStepRequest struct {
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	GoalsAdvanced []string                 `json:"goals_advanced"`
	ChangesMade   []map[string]interface{} `json:"changes_made"`
	Outcome       string                   `json:"outcome"`
	AIParticipant string                   `json:"ai_participant"`
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var req addStepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || req.AIParticipant == "" {
		writeErrorStatus(w, http.StatusBadRequest, "title and ai_participant are required")
		return
	}

	stepID, err := s.manager.AddStep(r.Context(), r.PathValue("id"), req.Title, req.Description,
		req.GoalsAdvanced, req.ChangesMade, req.Outcome, req.AIParticipant)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"step_id": stepID,
	})
}

type goalProgressRequest struct {
	Progress int    `json:"progress"`
	Status   string `json:"status,omitempty"`
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req goalProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := evolution.GoalStatus(req.Status)
	if status != "" {
		if err := status.Validate(); err != nil {
			writeErrorStatus(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	err := s.manager.UpdateGoalProgress(r.Context(), r.PathValue("id"), r.PathValue("goalID"), req.Progress, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}
