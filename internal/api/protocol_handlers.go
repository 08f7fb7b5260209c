package api

import (
	"net/http"

	"github.com/concord-ai/concord/internal/protocol"
)

type registerProtocolRequest struct {
	Schema        *protocol.Schema `json:"schema"`
	RegisteringAI string           `json:"registering_ai"`
}

func (s *Server) handleRegisterProtocol(w http.ResponseWriter, r *http.Request) {
	var req registerProtocolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Schema == nil {
		writeErrorStatus(w, http.StatusBadRequest, "schema is required")
		return
	}

	id, err := s.harmonizer.Register(r.Context(), req.Schema, req.RegisteringAI)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"schema_id": id,
	})
}

func (s *Server) handleListProtocols(w http.ResponseWriter, r *http.Request) {
	entries, err := s.harmonizer.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"protocols": entries,
	})
}

func (s *Server) handleGetPrimary(w http.ResponseWriter, r *http.Request) {
	primary, err := s.harmonizer.Primary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"primary": primary,
	})
}

type setPrimaryRequest struct {
	SchemaID  string `json:"schema_id"`
	Reason    string `json:"reason"`
	DecidedBy string `json:"decided_by"`
}

func (s *Server) handleSetPrimary(w http.ResponseWriter, r *http.Request) {
	var req setPrimaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SchemaID == "" {
		writeErrorStatus(w, http.StatusBadRequest, "schema_id is required")
		return
	}

	if err := s.harmonizer.SetPrimary(r.Context(), req.SchemaID, req.Reason, req.DecidedBy); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"primary_protocol": req.SchemaID,
	})
}

type reportUsageRequest struct {
	SchemaID string `json:"schema_id"`
	UsingAI  string `json:"using_ai"`
}

func (s *Server) handleReportUsage(w http.ResponseWriter, r *http.Request) {
	var req reportUsageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SchemaID == "" {
		writeErrorStatus(w, http.StatusBadRequest, "schema_id is required")
		return
	}

	if err := s.harmonizer.ReportUsage(r.Context(), req.SchemaID, req.UsingAI); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) handleProtocolLog(w http.ResponseWriter, r *http.Request) {
	events, err := s.harmonizer.Events(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
