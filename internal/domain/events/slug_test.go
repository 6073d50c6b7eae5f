package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	require.Equal(t, "my-event", Slugify("My Event"))
	require.Equal(t, "launch-party", Slugify("Launch Party"))
	require.Equal(t, "one--two", Slugify("ONE  TWO"))
	require.Equal(t, "solo", Slugify("solo"))
	require.Equal(t, "missing-title", Slugify(""))
}
