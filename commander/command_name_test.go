package commander

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameCommandShowCurrent(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "name", false)
	req, store, _ := newGuildRequest(t, i)

	result, err := execNameCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsFinished)
	// no override, so the roster name shows
	assert.Contains(t, result.Content, "Alice")

	sets, _ := store.writes()
	assert.Empty(t, sets)
}

func TestNameCommandShowOverride(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "name", false)
	req, _, _ := newGuildRequest(t, i)
	req.Cache.SetName("u1", "Ace")

	result, err := execNameCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Content, "Ace")
	assert.NotContains(t, result.Content, "Alice")
}

func TestNameCommandSet(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "name", false,
		stringOption("name", "Commander Alice"),
	)
	req, store, _ := newGuildRequest(t, i)
	ctx := context.Background()

	result, err := execNameCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)
	assert.Contains(t, result.Content, "Commander Alice")

	var stored string
	require.NoError(t, store.Get(ctx, "names/u1", &stored))
	assert.Equal(t, "Commander Alice", stored)

	name, ok := req.Cache.Name("u1")
	assert.True(t, ok)
	assert.Equal(t, "Commander Alice", name)
}

func TestNameCommandSetTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("字", displayNameMaxLength+5)
	i := newCommandInteraction(
		"g1", "u1", "name", false,
		stringOption("name", long),
	)
	req, store, _ := newGuildRequest(t, i)
	ctx := context.Background()

	_, err := execNameCommand(ctx, req)
	require.NoError(t, err)

	var stored string
	require.NoError(t, store.Get(ctx, "names/u1", &stored))
	assert.Equal(t, displayNameMaxLength, len([]rune(stored)))
}
