package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateColumnWhitelist(t *testing.T) {
	_, _, ok := updateColumn("short_link_injection", "http://evil")
	require.False(t, ok)

	value, cast, ok := updateColumn("title", "New Title")
	require.True(t, ok)
	require.Empty(t, cast)
	require.Equal(t, "New Title", value)

	_, cast, ok = updateColumn("start_time", "2026-09-12T18:00:00Z")
	require.True(t, ok)
	require.Equal(t, "::timestamptz", cast)
}

func TestUpdateColumnConvertsTags(t *testing.T) {
	value, _, ok := updateColumn("tags", []any{"music", "food", 42})
	require.True(t, ok)
	require.Equal(t, []string{"music", "food"}, value)
}

func TestTagsOrEmpty(t *testing.T) {
	require.Equal(t, []string{}, tagsOrEmpty(nil))
	require.Equal(t, []string{"art"}, tagsOrEmpty([]string{"art"}))
}
