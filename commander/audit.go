package commander

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// auditLogger mirrors every command outcome to the configured log
// channel. Send failures are logged and swallowed, the audit trail is
// best-effort and never affects the command path.
type auditLogger struct {
	channelID string
	logger    *slog.Logger
}

func newAuditLogger(channelID string, logger *slog.Logger) *auditLogger {
	return &auditLogger{channelID: channelID, logger: logger}
}

// commandServed mirrors a successful outcome: the invocation, the
// rendered response, and an audit embed with the guild/channel/user and
// the round-trip latency.
func (a *auditLogger) commandServed(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	result *CommandResult,
	latency time.Duration,
) {
	if a.channelID == "" {
		return
	}

	content := fmt.Sprintf(
		"[`%s`] `%s`\n%s",
		snowflakeTime(i.ID).UTC().Format(time.RFC3339),
		renderInvocation(i),
		result.Content,
	)

	embeds := []*discordgo.MessageEmbed{}
	if result.Embed != nil {
		embeds = append(embeds, result.Embed)
	}
	embeds = append(embeds, a.contextEmbed(session, i, latency, 0))

	a.send(session, &discordgo.MessageSend{Content: content, Embeds: embeds})
}

// commandFailed mirrors an error outcome as a red embed carrying the
// error and, when available, the stack trace.
func (a *auditLogger) commandFailed(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	err error,
	stack []byte,
) {
	if a.channelID == "" {
		return
	}

	description := fmt.Sprintf("```%s```", truncate(err.Error(), 1000))
	embed := a.contextEmbed(session, i, 0, errorEmbedColor)
	embed.Description = description
	if len(stack) > 0 {
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  "Stack",
				Value: fmt.Sprintf("```%s```", truncate(string(stack), 1000)),
			},
		)
	}

	content := fmt.Sprintf(
		"[`%s`] `%s` error",
		snowflakeTime(i.ID).UTC().Format(time.RFC3339),
		renderInvocation(i),
	)
	a.send(session, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
}

func (a *auditLogger) send(session DiscordSessionHandler, msg *discordgo.MessageSend) {
	if _, err := session.ChannelMessageSendComplex(a.channelID, msg); err != nil {
		a.logger.Warn("error sending audit message", tint.Err(err))
	}
}

// contextEmbed builds the Guild/Channel/User field block shared by all
// audit messages.
func (a *auditLogger) contextEmbed(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	latency time.Duration,
	color int,
) *discordgo.MessageEmbed {
	guildName := "--"
	channelName := "--"
	if guild, err := session.StateGuild(i.GuildID); err == nil {
		guildName = escapeMarkdown(guild.Name)
		for _, channel := range guild.Channels {
			if channel.ID == i.ChannelID {
				channelName = escapeMarkdown(channel.Name)
				break
			}
		}
	}

	userID := "--"
	userName := "--"
	if user := getDiscordUser(i); user != nil {
		userID = user.ID
		userName = escapeMarkdown(user.Username)
	}

	embed := &discordgo.MessageEmbed{
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Guild",
				Value:  fmt.Sprintf("%s\n%s", i.GuildID, guildName),
				Inline: true,
			},
			{
				Name:   "Channel",
				Value:  fmt.Sprintf("%s\n%s", i.ChannelID, channelName),
				Inline: true,
			},
			{
				Name:   "User",
				Value:  fmt.Sprintf("%s\n%s", userID, userName),
				Inline: true,
			},
		},
		Timestamp: snowflakeTime(i.ID).UTC().Format(time.RFC3339),
	}
	if latency > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%dms", latency.Milliseconds()),
		}
	}
	return embed
}

// renderInvocation renders the slash command with its options, the way
// the invoker typed it.
func renderInvocation(i *discordgo.InteractionCreate) string {
	data := i.ApplicationCommandData()
	parts := []string{"/" + data.Name}
	parts = append(parts, renderOptions(data.Options)...)
	return strings.Join(parts, " ")
}

func renderOptions(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) []string {
	var parts []string
	for _, option := range options {
		switch option.Type {
		case discordgo.ApplicationCommandOptionSubCommand,
			discordgo.ApplicationCommandOptionSubCommandGroup:
			parts = append(parts, option.Name)
			parts = append(parts, renderOptions(option.Options)...)
		default:
			parts = append(
				parts,
				fmt.Sprintf("%s:%v", option.Name, option.Value),
			)
		}
	}
	return parts
}
