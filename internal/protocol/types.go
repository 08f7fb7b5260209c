// Package protocol implements the Concord protocol registry: an append-only
// set of communication protocol schemas registered by collaborating AI
// systems, a single primary-protocol pointer, and the negotiation log that
// records how primacy decisions were made.
//
// All state lives in JSON documents under .ai/protocols/ in the document
// store. Every operation is a read-modify-write of whole documents.
package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Document paths for protocol state. These form a stable naming contract:
// other AI systems discover and read these documents directly.
const (
	RegistryPath       = ".ai/protocols/registry.json"
	SchemasDir         = ".ai/protocols/schemas"
	PrimaryPath        = ".ai/protocols/primary_protocol.json"
	NegotiationLogPath = ".ai/protocols/negotiation_log.json"
)

// HarmonizerActor is the actor recorded for automatic negotiation decisions.
const HarmonizerActor = "ProtocolHarmonizer"

// SchemaPath returns the document path for a schema.
func SchemaPath(schemaID string) string {
	return fmt.Sprintf("%s/%s.json", SchemasDir, schemaID)
}

// Schema defines a communication protocol schema.
// Schemas are created on registration, mutated only by usage reporting, and
// never deleted (the registry is append-only).
type Schema struct {
	SchemaID      string                 `json:"schema_id"`
	Name          string                 `json:"name"`
	Version       string                 `json:"version"`
	Author        string                 `json:"author"`
	Description   string                 `json:"description"`
	Endpoints     map[string]interface{} `json:"endpoints"`
	MessageFormat map[string]interface{} `json:"message_format"`
	Capabilities  []string               `json:"capabilities"`
	Compatibility []string               `json:"compatibility"`
	CreatedAt     time.Time              `json:"created_at"`
	UsageCount    int                    `json:"usage_count"`
	LastUsed      *time.Time             `json:"last_used,omitempty"`
	LastUsedBy    string                 `json:"last_used_by,omitempty"`
}

// Validate checks that every required registration field is present.
// Returns a ValidationError naming all missing fields, so a caller sees the
// full list in one round trip.
func (s *Schema) Validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Version == "" {
		missing = append(missing, "version")
	}
	if s.Author == "" {
		missing = append(missing, "author")
	}
	if s.Description == "" {
		missing = append(missing, "description")
	}
	if s.Endpoints == nil {
		missing = append(missing, "endpoints")
	}
	if s.MessageFormat == nil {
		missing = append(missing, "message_format")
	}
	if s.Capabilities == nil {
		missing = append(missing, "capabilities")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// DeriveSchemaID builds a schema id from name and version: lower-cased,
// spaces and dots replaced with underscores. Two registrations of the same
// name+version therefore collide, which is intentional.
func DeriveSchemaID(name, version string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, ".", "_")
	v := strings.ReplaceAll(version, ".", "_")
	return id + "_" + v
}

// RegistryEntry is the summary row stored in the registry document.
type RegistryEntry struct {
	SchemaID string `json:"schema_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Author   string `json:"author"`
	Path     string `json:"path"`
}

// Registry is the registry document: the list of every registered protocol.
type Registry struct {
	LastUpdated time.Time       `json:"last_updated"`
	Protocols   []RegistryEntry `json:"protocols"`
}

// Contains reports whether the registry already holds schemaID.
func (r *Registry) Contains(schemaID string) bool {
	for _, p := range r.Protocols {
		if p.SchemaID == schemaID {
			return true
		}
	}
	return false
}

// ListEntry is a registry entry decorated with primary status for listing.
type ListEntry struct {
	RegistryEntry
	IsPrimary bool `json:"is_primary"`
}

// PrimaryPointer designates the single canonical protocol for inter-AI
// messages. At most one exists per registry; it is overwritten wholesale on
// every decision, never merged.
type PrimaryPointer struct {
	PrimaryProtocol string    `json:"primary_protocol"`
	DecidedAt       time.Time `json:"decided_at"`
	Reason          string    `json:"reason"`
	DecidedBy       string    `json:"decided_by"`
}

// PrimarySchema is the primary protocol's full schema decorated with
// pointer metadata.
type PrimarySchema struct {
	Schema
	PrimarySince  time.Time `json:"primary_since"`
	PrimaryReason string    `json:"primary_reason"`
	DecidedBy     string    `json:"decided_by"`
}

// LogEvent is a single negotiation log entry.
type LogEvent struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
}

// NegotiationLog is the negotiation log document.
type NegotiationLog struct {
	Events []LogEvent `json:"events"`
}

// ValidationError reports required registration fields that were absent.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema missing required fields: %s", strings.Join(e.Missing, ", "))
}

// DuplicateError reports a registration whose schema id is already taken.
type DuplicateError struct {
	SchemaID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("protocol schema with ID %s already exists", e.SchemaID)
}

// NotFoundError reports a reference to a schema that is not registered.
type NotFoundError struct {
	SchemaID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("protocol schema %s not found in registry", e.SchemaID)
}
