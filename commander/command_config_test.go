package commander

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func channelOption(name string, channelID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:  discordgo.ApplicationCommandOptionChannel,
		Name:  name,
		Value: channelID,
	}
}

func roleOption(name string, roleID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:  discordgo.ApplicationCommandOptionRole,
		Name:  name,
		Value: roleID,
	}
}

func TestConfigCommandAdminOnly(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "config", false, subOption("all"))
	req, _, _ := newGuildRequest(t, i)

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsPermissionError)
}

func TestConfigCommandAll(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "config", true, subOption("all"))
	req, _, _ := newGuildRequest(t, i)
	req.Cache.SetSettings("g1", GuildSettings{
		Locale:   "en-US",
		Channels: "c1",
		Roles:    "r1",
		Admin:    "r1",
	})

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)
	assert.Contains(t, result.Content, "Test Guild")

	require.NotNil(t, result.Embed)
	require.Len(t, result.Embed.Fields, 4)
	assert.Equal(t, "en-US", result.Embed.Fields[0].Value)
	assert.Contains(t, result.Embed.Fields[1].Value, "General")
	assert.Contains(t, result.Embed.Fields[2].Value, "Raiders")
	assert.Contains(t, result.Embed.Fields[3].Value, "r1")
}

func TestConfigCommandLocale(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("locale", stringOption("locale", "en-US")),
	)
	req, store, _ := newGuildRequest(t, i)
	ctx := context.Background()

	result, err := execConfigCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)

	var locale string
	require.NoError(t, store.Get(ctx, "settings/g1/locale", &locale))
	assert.Equal(t, "en-US", locale)
	assert.Equal(t, "en-US", req.Cache.Settings("g1").Locale)

	// confirmation is in the new locale
	assert.Contains(t, result.Content, "en-US")
}

func TestConfigCommandInvalidLocale(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("locale", stringOption("locale", "xx-XX")),
	)
	req, store, _ := newGuildRequest(t, i)

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsSyntaxError)

	sets, _ := store.writes()
	assert.Empty(t, sets)
}

func TestConfigCommandChannelsAdd(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption(
			"channels",
			stringOption("action", "add"),
			channelOption("voice", "c2"),
		),
	)
	req, store, _ := newGuildRequest(t, i)
	req.Cache.SetSettings("g1", GuildSettings{Channels: "c1"})
	ctx := context.Background()

	result, err := execConfigCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)
	assert.Contains(t, result.Content, "Battle")

	var channels string
	require.NoError(t, store.Get(ctx, "settings/g1/channels", &channels))
	assert.Equal(t, "c1 c2", channels)
	assert.Equal(t, "c1 c2", req.Cache.Settings("g1").Channels)
}

func TestConfigCommandChannelsRemoveLast(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption(
			"channels",
			stringOption("action", "remove"),
			channelOption("voice", "c1"),
		),
	)
	req, store, _ := newGuildRequest(t, i)
	req.Cache.SetSettings("g1", GuildSettings{Channels: "c1"})

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)

	// removing the last channel deletes the setting
	_, deletes := store.writes()
	assert.Contains(t, deletes, "settings/g1/channels")
	assert.Empty(t, req.Cache.Settings("g1").Channels)
}

func TestConfigCommandChannelsNotVoice(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption(
			"channels",
			stringOption("action", "add"),
			channelOption("voice", "t1"),
		),
	)
	req, _, _ := newGuildRequest(t, i)

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsSyntaxError)
}

func TestConfigCommandRoles(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("roles", stringOption("roles", "<@&11> <@&99>")),
	)
	req, store, _ := newGuildRequest(t, i)
	req.Roster.Roles = map[string]string{"11": "Raiders"}
	ctx := context.Background()

	result, err := execConfigCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)
	assert.Contains(t, result.Content, "Raiders")

	var roles string
	require.NoError(t, store.Get(ctx, "settings/g1/roles", &roles))
	assert.Equal(t, "11", roles)
}

func TestConfigCommandRolesEveryone(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("roles", stringOption("roles", "@everyone")),
	)
	req, store, _ := newGuildRequest(t, i)
	req.Cache.SetSettings("g1", GuildSettings{Roles: "11"})

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)

	_, deletes := store.writes()
	assert.Contains(t, deletes, "settings/g1/roles")
	assert.Empty(t, req.Cache.Settings("g1").Roles)
}

func TestConfigCommandRolesNoneMentioned(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("roles", stringOption("roles", "nothing to see")),
	)
	req, _, _ := newGuildRequest(t, i)

	result, err := execConfigCommand(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsSyntaxError)
}

func TestConfigCommandAdminRole(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("admin", roleOption("role", "r1")),
	)
	req, store, _ := newGuildRequest(t, i)
	ctx := context.Background()

	result, err := execConfigCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsFinished)
	assert.Contains(t, result.Content, "Raiders")

	var admin string
	require.NoError(t, store.Get(ctx, "settings/g1/admin", &admin))
	assert.Equal(t, "r1", admin)

	// unknown role is rejected
	i = newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("admin", roleOption("role", "r9")),
	)
	req.Interaction = i
	result, err = execConfigCommand(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsSyntaxError)
}
