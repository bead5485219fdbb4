package document

import (
	"fmt"
	"strings"
)

// Kind tags the entity a document was derived from.
type Kind string

const (
	KindTeam      Kind = "team"
	KindFixture   Kind = "fixture"
	KindScorecard Kind = "scorecard"
	KindLadder    Kind = "ladder"
	KindRoster    Kind = "roster"
)

func ParseKind(v string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(v))) {
	case KindTeam:
		return KindTeam, nil
	case KindFixture:
		return KindFixture, nil
	case KindScorecard:
		return KindScorecard, nil
	case KindLadder:
		return KindLadder, nil
	case KindRoster:
		return KindRoster, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", v)
	}
}

// Metadata keys. Every document carries season, grade and type; team and
// date are present where the entity has them.
const (
	MetaTeamID   = "team_id"
	MetaSeasonID = "season_id"
	MetaGradeID  = "grade_id"
	MetaType     = "type"
	MetaDate     = "date"
)

// Document is the storage unit of the vector store. Re-ingesting the same
// entity produces the same ID so writes overwrite instead of accumulating.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

func (d Document) Kind() Kind {
	return Kind(d.Metadata[MetaType])
}

// ID derives the deterministic document identifier for an entity.
func ID(kind Kind, entityID string) string {
	return string(kind) + "-" + strings.TrimSpace(entityID)
}

// CloneMetadata returns a copy safe to mutate.
func CloneMetadata(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}

// Matches reports whether the document satisfies every filter key exactly.
func (d Document) Matches(filters map[string]string) bool {
	for key, want := range filters {
		if d.Metadata[key] != want {
			return false
		}
	}
	return true
}
