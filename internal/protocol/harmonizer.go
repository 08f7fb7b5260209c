package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/concord-ai/concord/pkg/docstore"
)

// Harmonizer manages the protocol registry and primacy negotiation.
// It is constructed with an explicit document store client; there is no
// process-wide registry instance.
type Harmonizer struct {
	store *docstore.Client
}

// NewHarmonizer creates a Harmonizer backed by the given document store.
func NewHarmonizer(store *docstore.Client) *Harmonizer {
	return &Harmonizer{store: store}
}

// Initialize bootstraps the protocol registry with the default Concord
// protocol: registry document, default schema document, primary pointer, and
// negotiation log. Safe to call on an already-initialized store; documents
// are replaced wholesale.
func (h *Harmonizer) Initialize(ctx context.Context) error {
	def := DefaultSchema()

	registry := &Registry{
		LastUpdated: time.Now().UTC(),
		Protocols: []RegistryEntry{{
			SchemaID: def.SchemaID,
			Name:     def.Name,
			Version:  def.Version,
			Author:   def.Author,
			Path:     SchemaPath(def.SchemaID),
		}},
	}
	if err := h.writeJSON(ctx, RegistryPath, "Initialize protocol registry", registry); err != nil {
		return err
	}

	if err := h.writeJSON(ctx, SchemaPath(def.SchemaID), "Create default protocol schema", def); err != nil {
		return err
	}

	primary := &PrimaryPointer{
		PrimaryProtocol: def.SchemaID,
		DecidedAt:       time.Now().UTC(),
		Reason:          "Default protocol, no alternatives available",
		DecidedBy:       HarmonizerActor,
	}
	if err := h.writeJSON(ctx, PrimaryPath, "Set default primary protocol", primary); err != nil {
		return err
	}

	negotiationLog := &NegotiationLog{
		Events: []LogEvent{{
			EventID:     uuid.New().String(),
			Timestamp:   time.Now().UTC(),
			EventType:   "initialization",
			Description: "Protocol registry initialized with default protocol",
			Actor:       HarmonizerActor,
		}},
	}
	if err := h.writeJSON(ctx, NegotiationLogPath, "Initialize protocol negotiation log", negotiationLog); err != nil {
		return err
	}

	log.Printf("[Harmonizer] Protocol registry initialized for instance '%s'", h.store.InstanceName())
	return nil
}

// Register adds a new protocol schema to the registry.
//
// Fails with *ValidationError if any required field is absent, and with
// *DuplicateError if the (possibly derived) schema id is already registered.
// On success the schema document is written, the registry is updated, a
// registration event is logged, and primacy negotiation runs as a side
// effect. Returns the schema id.
func (h *Harmonizer) Register(ctx context.Context, schema *Schema, registeringAI string) (string, error) {
	if err := schema.Validate(); err != nil {
		return "", err
	}

	if schema.SchemaID == "" {
		schema.SchemaID = DeriveSchemaID(schema.Name, schema.Version)
	}

	registry, err := h.loadRegistry(ctx)
	if err != nil {
		return "", err
	}
	if registry.Contains(schema.SchemaID) {
		return "", &DuplicateError{SchemaID: schema.SchemaID}
	}

	if schema.Compatibility == nil {
		schema.Compatibility = []string{}
	}
	schema.CreatedAt = time.Now().UTC()
	schema.UsageCount = 0

	if err := h.writeJSON(ctx, SchemaPath(schema.SchemaID),
		fmt.Sprintf("Register protocol schema: %s", schema.Name), schema); err != nil {
		return "", err
	}

	registry.Protocols = append(registry.Protocols, RegistryEntry{
		SchemaID: schema.SchemaID,
		Name:     schema.Name,
		Version:  schema.Version,
		Author:   schema.Author,
		Path:     SchemaPath(schema.SchemaID),
	})
	registry.LastUpdated = time.Now().UTC()

	if err := h.writeJSON(ctx, RegistryPath,
		fmt.Sprintf("Update registry with new protocol: %s", schema.Name), registry); err != nil {
		return "", err
	}

	h.logEvent(ctx, "registration",
		fmt.Sprintf("Protocol '%s' registered by %s", schema.Name, registeringAI), registeringAI)

	// Negotiation runs only as a side effect of registration. A negotiation
	// failure does not fail the registration itself.
	if err := h.negotiate(ctx); err != nil {
		log.Printf("[Harmonizer] Error negotiating primary protocol: %v", err)
	}

	log.Printf("[Harmonizer] Protocol schema %s registered successfully", schema.SchemaID)
	return schema.SchemaID, nil
}

// ReportUsage records one use of a protocol by an AI system.
// Fails with *NotFoundError if the schema is unknown. Usage accrues silently:
// reporting usage never triggers renegotiation.
func (h *Harmonizer) ReportUsage(ctx context.Context, schemaID, usingAI string) error {
	schema, err := h.loadSchema(ctx, schemaID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	schema.UsageCount++
	schema.LastUsed = &now
	schema.LastUsedBy = usingAI

	if err := h.writeJSON(ctx, SchemaPath(schemaID),
		fmt.Sprintf("Update usage stats for %s", schemaID), schema); err != nil {
		return err
	}

	log.Printf("[Harmonizer] Reported usage of protocol %s by %s", schemaID, usingAI)
	return nil
}

// SetPrimary designates schemaID as the primary protocol.
// Fails with *NotFoundError if the schema is not in the registry. The pointer
// document is overwritten wholesale and a primary_change event is logged.
func (h *Harmonizer) SetPrimary(ctx context.Context, schemaID, reason, decidedBy string) error {
	registry, err := h.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if !registry.Contains(schemaID) {
		return &NotFoundError{SchemaID: schemaID}
	}

	primary := &PrimaryPointer{
		PrimaryProtocol: schemaID,
		DecidedAt:       time.Now().UTC(),
		Reason:          reason,
		DecidedBy:       decidedBy,
	}
	if err := h.writeJSON(ctx, PrimaryPath,
		fmt.Sprintf("Set primary protocol to %s", schemaID), primary); err != nil {
		return err
	}

	h.logEvent(ctx, "primary_change",
		fmt.Sprintf("Primary protocol set to %s by %s: %s", schemaID, decidedBy, reason), decidedBy)

	log.Printf("[Harmonizer] Primary protocol set to %s", schemaID)
	return nil
}

// Primary returns the current primary protocol's full schema decorated with
// pointer metadata. Fails with *NotFoundError when no primary is set or its
// schema document is missing.
func (h *Harmonizer) Primary(ctx context.Context) (*PrimarySchema, error) {
	pointer, err := h.loadPrimaryPointer(ctx)
	if err != nil {
		return nil, err
	}
	if pointer == nil || pointer.PrimaryProtocol == "" {
		return nil, &NotFoundError{SchemaID: "primary"}
	}

	schema, err := h.loadSchema(ctx, pointer.PrimaryProtocol)
	if err != nil {
		return nil, err
	}

	return &PrimarySchema{
		Schema:        *schema,
		PrimarySince:  pointer.DecidedAt,
		PrimaryReason: pointer.Reason,
		DecidedBy:     pointer.DecidedBy,
	}, nil
}

// List returns every registry entry with its primary status.
func (h *Harmonizer) List(ctx context.Context) ([]ListEntry, error) {
	registry, err := h.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}

	primaryID := ""
	if pointer, err := h.loadPrimaryPointer(ctx); err == nil && pointer != nil {
		primaryID = pointer.PrimaryProtocol
	}

	entries := make([]ListEntry, 0, len(registry.Protocols))
	for _, p := range registry.Protocols {
		entries = append(entries, ListEntry{
			RegistryEntry: p,
			IsPrimary:     p.SchemaID == primaryID,
		})
	}
	return entries, nil
}

// Events returns the negotiation log, oldest first.
func (h *Harmonizer) Events(ctx context.Context) ([]LogEvent, error) {
	doc, err := h.store.GetDocument(ctx, NegotiationLogPath)
	if err != nil {
		if docstore.IsNotFound(err) {
			return []LogEvent{}, nil
		}
		return nil, err
	}

	var negotiationLog NegotiationLog
	if err := json.Unmarshal([]byte(doc.Content), &negotiationLog); err != nil {
		return nil, fmt.Errorf("failed to parse negotiation log: %w", err)
	}
	return negotiationLog.Events, nil
}

// negotiate decides which protocol should be primary.
//
// Registries with at most one protocol skip negotiation entirely: the
// pointer writer is never called and the current primary, if any, stands.
// Otherwise every schema is scored (see Score) and the top-ranked schema
// replaces the primary if it differs from the incumbent.
func (h *Harmonizer) negotiate(ctx context.Context) error {
	registry, err := h.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if len(registry.Protocols) <= 1 {
		return nil
	}

	schemas := make([]*Schema, 0, len(registry.Protocols))
	for _, entry := range registry.Protocols {
		schema, err := h.loadSchema(ctx, entry.SchemaID)
		if err != nil {
			// A registry entry without a schema document is skipped rather
			// than failing the whole negotiation.
			log.Printf("[Harmonizer] Skipping schema %s during negotiation: %v", entry.SchemaID, err)
			continue
		}
		schemas = append(schemas, schema)
	}
	if len(schemas) == 0 {
		return nil
	}

	currentPrimaryID := ""
	if pointer, err := h.loadPrimaryPointer(ctx); err == nil && pointer != nil {
		currentPrimaryID = pointer.PrimaryProtocol
	}

	scores := RankSchemas(schemas, currentPrimaryID)
	if scores[0].SchemaID == currentPrimaryID {
		return nil
	}

	reason := fmt.Sprintf("Automatic negotiation: highest scoring protocol (%d points)", scores[0].Score)
	if err := h.SetPrimary(ctx, scores[0].SchemaID, reason, HarmonizerActor); err != nil {
		return err
	}

	log.Printf("[Harmonizer] Protocol negotiation resulted in new primary: %s", scores[0].SchemaID)
	return nil
}

// loadRegistry loads the registry document, returning an empty registry when
// the document does not exist yet.
func (h *Harmonizer) loadRegistry(ctx context.Context) (*Registry, error) {
	doc, err := h.store.GetDocument(ctx, RegistryPath)
	if err != nil {
		if docstore.IsNotFound(err) {
			return &Registry{Protocols: []RegistryEntry{}}, nil
		}
		return nil, err
	}

	var registry Registry
	if err := json.Unmarshal([]byte(doc.Content), &registry); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if registry.Protocols == nil {
		registry.Protocols = []RegistryEntry{}
	}
	return &registry, nil
}

// loadSchema loads a schema document. Fails with *NotFoundError when absent.
func (h *Harmonizer) loadSchema(ctx context.Context, schemaID string) (*Schema, error) {
	doc, err := h.store.GetDocument(ctx, SchemaPath(schemaID))
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, &NotFoundError{SchemaID: schemaID}
		}
		return nil, err
	}

	var schema Schema
	if err := json.Unmarshal([]byte(doc.Content), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", schemaID, err)
	}
	return &schema, nil
}

// loadPrimaryPointer loads the primary pointer, returning (nil, nil) when no
// pointer document exists.
func (h *Harmonizer) loadPrimaryPointer(ctx context.Context) (*PrimaryPointer, error) {
	doc, err := h.store.GetDocument(ctx, PrimaryPath)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var pointer PrimaryPointer
	if err := json.Unmarshal([]byte(doc.Content), &pointer); err != nil {
		return nil, fmt.Errorf("failed to parse primary pointer: %w", err)
	}
	return &pointer, nil
}

// logEvent appends an event to the negotiation log. Log failures are
// reported but never fail the triggering operation.
func (h *Harmonizer) logEvent(ctx context.Context, eventType, description, actor string) {
	negotiationLog := &NegotiationLog{Events: []LogEvent{}}

	if doc, err := h.store.GetDocument(ctx, NegotiationLogPath); err == nil {
		if err := json.Unmarshal([]byte(doc.Content), negotiationLog); err != nil {
			log.Printf("[Harmonizer] Resetting unreadable negotiation log: %v", err)
			negotiationLog = &NegotiationLog{Events: []LogEvent{}}
		}
	}

	negotiationLog.Events = append(negotiationLog.Events, LogEvent{
		EventID:     uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Description: description,
		Actor:       actor,
	})

	if err := h.writeJSON(ctx, NegotiationLogPath,
		fmt.Sprintf("Log negotiation event: %s", eventType), negotiationLog); err != nil {
		log.Printf("[Harmonizer] Error logging negotiation event: %v", err)
	}
}

// writeJSON marshals v with indentation and writes it at path.
// On storage failure the content that would have been written is logged so
// operators can recover the document manually.
func (h *Harmonizer) writeJSON(ctx context.Context, path, message string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := h.store.PutDocument(ctx, path, message, string(content)); err != nil {
		log.Printf("[Harmonizer] Error writing %s: %v", path, err)
		log.Printf("[Harmonizer] Would have written to %s:\n%s", path, content)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
