package commander

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInvocation(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction(
		"g1", "u1", "modify", true,
		stringOption("date", "20240301"),
		stringOption("action", "add"),
	)
	assert.Equal(t, "/modify date:20240301 action:add", renderInvocation(i))

	i = newCommandInteraction(
		"g1", "u1", "config", true,
		subOption("locale", stringOption("locale", "en-US")),
	)
	assert.Equal(t, "/config locale locale:en-US", renderInvocation(i))

	i = newCommandInteraction("g1", "u1", "record", false)
	assert.Equal(t, "/record", renderInvocation(i))
}

func TestAuditCommandServed(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "record", false)
	_, _, session := newGuildRequest(t, i)
	i.ChannelID = "c1"

	auditor := newAuditLogger("log-channel", slog.Default())
	auditor.commandServed(
		session,
		i,
		&CommandResult{
			Content: "done",
			Embed:   &discordgo.MessageEmbed{Description: "attendees"},
		},
		1500*time.Millisecond,
	)

	sent := session.sentAudits()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content, "/record")
	assert.Contains(t, sent[0].Content, "done")

	// result embed first, then the audit context embed
	require.Len(t, sent[0].Embeds, 2)
	assert.Equal(t, "attendees", sent[0].Embeds[0].Description)

	context := sent[0].Embeds[1]
	require.Len(t, context.Fields, 3)
	assert.Contains(t, context.Fields[0].Value, "Test Guild")
	assert.Contains(t, context.Fields[1].Value, "General")
	assert.Contains(t, context.Fields[2].Value, "u1")
	require.NotNil(t, context.Footer)
	assert.Equal(t, "1500ms", context.Footer.Text)
}

func TestAuditCommandFailed(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "record", false)
	_, _, session := newGuildRequest(t, i)

	auditor := newAuditLogger("log-channel", slog.Default())
	auditor.commandFailed(
		session,
		i,
		errors.New("store unavailable"),
		[]byte("goroutine 1 [running]"),
	)

	sent := session.sentAudits()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Embeds, 1)

	embed := sent[0].Embeds[0]
	assert.Equal(t, errorEmbedColor, embed.Color)
	assert.Contains(t, embed.Description, "store unavailable")

	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "Stack", embed.Fields[3].Name)
	assert.Contains(t, embed.Fields[3].Value, "goroutine 1")
}

func TestAuditDisabledWithoutChannel(t *testing.T) {
	t.Parallel()

	i := newCommandInteraction("g1", "u1", "record", false)
	_, _, session := newGuildRequest(t, i)

	auditor := newAuditLogger("", slog.Default())
	auditor.commandServed(session, i, &CommandResult{Content: "done"}, 0)
	auditor.commandFailed(session, i, errors.New("nope"), nil)

	assert.Empty(t, session.sentAudits())
}
