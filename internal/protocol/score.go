package protocol

import "sort"

// Negotiation scoring
//
// Primacy is decided by a deterministic additive score. The weights favour
// protocols that do more (capabilities), that are actually used (usage), and
// that interoperate (compatibility); the default protocol and the current
// primary get fixed bonuses so primacy is sticky rather than flapping on
// every registration.
const (
	usageWeight    = 2
	compatWeight   = 3
	defaultBonus   = 5
	incumbentBonus = 10
)

// Score computes the negotiation score for a schema given the current
// primary id (empty when no primary is set).
func Score(s *Schema, currentPrimaryID string) int {
	score := len(s.Capabilities)
	score += s.UsageCount * usageWeight
	score += len(s.Compatibility) * compatWeight
	if s.SchemaID == DefaultSchemaID {
		score += defaultBonus
	}
	if currentPrimaryID != "" && s.SchemaID == currentPrimaryID {
		score += incumbentBonus
	}
	return score
}

// ScoredSchema pairs a schema id with its negotiation score.
type ScoredSchema struct {
	SchemaID string `json:"schema_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// RankSchemas scores every schema and sorts descending by score.
// The sort is stable: ties keep input order, so the same registry always
// ranks the same way.
func RankSchemas(schemas []*Schema, currentPrimaryID string) []ScoredSchema {
	scores := make([]ScoredSchema, 0, len(schemas))
	for _, s := range schemas {
		scores = append(scores, ScoredSchema{
			SchemaID: s.SchemaID,
			Name:     s.Name,
			Score:    Score(s, currentPrimaryID),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}
