package api

import (
	"log"
	"net/http"
	"strconv"
)

type contributeRequest struct {
	AIIdentifier     string                 `json:"ai_identifier"`
	ContributionType string                 `json:"contribution_type"`
	Content          string                 `json:"content"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.hub.RecordContribution(req.AIIdentifier, req.ContributionType, req.Content, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"contribution_id": id,
		"message":         "Contribution recorded successfully",
	})
}

type startDiscussionRequest struct {
	AIIdentifier   string   `json:"ai_identifier"`
	Topic          string   `json:"topic"`
	InitialMessage string   `json:"initial_message"`
	Tags           []string `json:"tags,omitempty"`
}

func (s *Server) handleStartDiscussion(w http.ResponseWriter, r *http.Request) {
	var req startDiscussionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.hub.StartDiscussion(req.AIIdentifier, req.Topic, req.InitialMessage, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"discussion_id": id,
		"message":       "Discussion started successfully",
	})
}

func (s *Server) handleRecentDiscussions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	discussions, err := s.hub.RecentDiscussions(limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"discussions": discussions,
	})
}

type recordEvolutionRequest struct {
	Version        string                   `json:"version"`
	Changes        []map[string]interface{} `json:"changes"`
	AIContributors []string                 `json:"ai_contributors"`
	Summary        string                   `json:"summary"`
}

func (s *Server) handleRecordEvolution(w http.ResponseWriter, r *http.Request) {
	var req recordEvolutionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.hub.RecordEvolution(req.Version, req.Changes, req.AIContributors, req.Summary)
	if err != nil {
		writeError(w, err)
		return
	}

	// Leave a discovery marker so other AI systems can find the milestone.
	// The record itself is the source of truth, so a marker failure is not
	// fatal to the request.
	if err := s.trails.CreateEvolutionMarker(r.Context(), req.Version, req.Summary, req.Changes, req.AIContributors); err != nil {
		log.Printf("[API] failed to create evolution marker for version %s: %v", req.Version, err)
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"evolution_id": id,
		"message":      "Evolution record created successfully",
	})
}

func (s *Server) handleEvolutionHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	history, err := s.hub.EvolutionHistory(limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"history": history,
	})
}

type createMessageRequest struct {
	AIIdentifier string                 `json:"ai_identifier"`
	Message      string                 `json:"message"`
	Topic        string                 `json:"topic,omitempty"`
	References   []string               `json:"references,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.AIIdentifier == "" || req.Message == "" {
		writeErrorStatus(w, http.StatusBadRequest, "ai_identifier and message are required")
		return
	}

	id, err := s.trails.CreateMessageMarker(r.Context(), req.AIIdentifier, req.Message, req.Topic, req.References, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"message_id": id,
		"message":    "Message marker created successfully",
	})
}

// parseLimit reads the optional ?limit= query parameter. Missing or invalid
// values return 0, which the store treats as the default.
func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
