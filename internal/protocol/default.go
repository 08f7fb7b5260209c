package protocol

import "time"

// DefaultSchemaID identifies the built-in Concord protocol. It receives a
// fixed bonus during negotiation.
const DefaultSchemaID = "concord_core_standard_v1"

// DefaultSchema returns the built-in Concord communication protocol.
// It is registered when the registry is initialized and acts as the primary
// until a higher-scoring protocol is registered.
func DefaultSchema() *Schema {
	return &Schema{
		SchemaID:    DefaultSchemaID,
		Name:        "Concord Core Standard Protocol",
		Version:     "1.0.0",
		Author:      "ConcordCore",
		Description: "Standard communication protocol for Concord AI systems",
		Endpoints: map[string]interface{}{
			"ai_collaboration": map[string]interface{}{
				"path":    "/ai-collaboration",
				"actions": []interface{}{"contribute", "discuss", "evolve"},
			},
			"evolution_threads": map[string]interface{}{
				"path":    "/ai-collaboration/threads",
				"actions": []interface{}{"create", "start", "stop", "list", "trigger"},
			},
		},
		MessageFormat: map[string]interface{}{
			"structure": map[string]interface{}{
				"id":         "string",
				"timestamp":  "string (ISO format)",
				"sender":     "string",
				"recipient":  "string",
				"type":       "string",
				"content":    "object",
				"references": "array of string",
			},
			"types": []interface{}{"message", "query", "response", "action", "event"},
		},
		Capabilities: []string{
			"contribution_tracking",
			"multi_ai_discussion",
			"evolution_tracking",
			"thread_management",
		},
		Compatibility: []string{},
		CreatedAt:     time.Now().UTC(),
	}
}
