package commander

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHintCommandKeyed(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "hint", false,
		stringOption("key", "roles"),
	)
	req, _, _ := newGuildRequest(t, i)
	req.Cache.SetHints(map[string]string{
		"roles":    "Use /config roles to filter attendees.",
		"channels": "Use /config channels to pin voice channels.",
	})

	result, err := execHintCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Embed)
	require.NotNil(t, result.Embed.Footer)
	assert.Equal(
		t,
		"💡 Use /config roles to filter attendees.",
		result.Embed.Footer.Text,
	)
}

func TestHintCommandRandomFallback(t *testing.T) {
	t.Parallel()

	// unknown key falls back to a random hint
	i := newCommandInteraction(
		"g1", "u1", "hint", false,
		stringOption("key", "nonsense"),
	)
	req, _, _ := newGuildRequest(t, i)
	req.Cache.SetHints(map[string]string{"only": "The only hint."})

	result, err := execHintCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Embed)
	assert.Equal(t, "💡 The only hint.", result.Embed.Footer.Text)
}

func TestHintCommandNoHints(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "hint", false)
	req, _, _ := newGuildRequest(t, i)

	result, err := execHintCommand(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, result)
}
