package document

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ContentHash is a stable digest over a document's text and metadata.
// Identical entity -> identical snippet -> identical hash, which is what
// makes re-ingestion a no-op.
func ContentHash(text string, metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(text)
	for _, key := range keys {
		b.WriteByte('\x00')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(metadata[key])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (d Document) ContentHash() string {
	return ContentHash(d.Text, d.Metadata)
}
