package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "caroline-springs-blue-u10", Slug("Caroline Springs Blue U10"))
	assert.Equal(t, "melbourne-cc", Slug("  Melbourne C.C. "))
	assert.Equal(t, "", Slug("---"))
}

func TestObjectPaths(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "cricket/caroline-springs-blue-u10/2025/03/08/match_m-100.json",
		MatchPath("Caroline Springs Blue U10", "m-100", at))
	assert.Equal(t, "cricket/ladders/2025/03/08/grade_grade-a.json",
		LadderPath("grade-a", at))
}

func TestPrettyJSON(t *testing.T) {
	t.Parallel()

	out := PrettyJSON([]byte(`{"a":1}`))
	assert.Equal(t, "{\n  \"a\": 1\n}", string(out))

	broken := []byte(`{"a":`)
	assert.Equal(t, broken, PrettyJSON(broken))
}

func TestLocalMirrorWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mirror, err := NewLocalMirror(root)
	require.NoError(t, err)

	path := MatchPath("Blue U10", "m-1", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC))
	location, err := mirror.Write(context.Background(), path, []byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, filepath.FromSlash(path)), location)

	raw, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}
