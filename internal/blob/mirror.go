package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Mirror archives raw provider payloads alongside the vector upserts so
// operators can rebuild or audit the store.
type Mirror interface {
	// Write stores the payload at the given object path and returns the
	// full location it landed at.
	Write(ctx context.Context, path string, payload []byte) (string, error)
}

var slugCleanRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a display name into a path-safe segment.
func Slug(name string) string {
	slug := slugCleanRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// MatchPath builds the object path for a raw game summary payload.
func MatchPath(teamName string, matchID string, at time.Time) string {
	return fmt.Sprintf("cricket/%s/%s/match_%s.json", Slug(teamName), at.Format("2006/01/02"), matchID)
}

// LadderPath builds the object path for a raw ladder payload.
func LadderPath(gradeID string, at time.Time) string {
	return fmt.Sprintf("cricket/ladders/%s/grade_%s.json", at.Format("2006/01/02"), gradeID)
}

// PrettyJSON reindents a raw payload for the archive. Invalid JSON is stored
// as-is rather than lost.
func PrettyJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}
