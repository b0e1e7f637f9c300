package commander

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	manualURL        = "https://hackmd.io/@eelayntris/commander"
	supportServerURL = "https://discord.gg/Ctwz4BB"

	// embedColor is the accent color on every decorated response embed
	embedColor = 0xcc5de8

	// errorEmbedColor marks audit embeds for failed commands
	errorEmbedColor = 0xe03131
)

// CommandRequest carries everything a command handler needs for one
// interaction: the invoking event, the guild's roster snapshot, the
// shared cache and the store.
type CommandRequest struct {
	Session     DiscordSessionHandler
	Interaction *discordgo.InteractionCreate
	GuildID     string
	User        *discordgo.User
	Roster      *GuildRoster
	Cache       *GuildCache
	Store       Store
	CreatedAt   time.Time
	Logger      *slog.Logger
}

// Settings returns the invoking guild's cached settings.
func (r *CommandRequest) Settings() GuildSettings {
	return r.Cache.Settings(r.GuildID)
}

// Locale returns the guild's configured locale, or the default.
func (r *CommandRequest) Locale() string {
	if locale := r.Settings().Locale; locale != "" {
		return locale
	}
	return DefaultLocale
}

// T resolves a message key in the guild's locale.
func (r *CommandRequest) T(key string) string {
	return translate(key, r.Locale())
}

// IsAdmin reports whether the invoker holds the Administrator permission
// or the guild's configured admin role.
func (r *CommandRequest) IsAdmin() bool {
	member := r.Interaction.Member
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	adminRoleID := r.Settings().Admin
	if adminRoleID == "" {
		return false
	}
	for _, roleID := range member.Roles {
		if roleID == adminRoleID {
			return true
		}
	}
	return false
}

// DisplayName resolves a member's rendered name: stored override first,
// then the roster display name truncated for embeds, then a mention as
// the last resort for members no longer in the guild.
func (r *CommandRequest) DisplayName(memberID string) string {
	if name, ok := r.Cache.Name(memberID); ok && name != "" {
		return name
	}
	if member, ok := r.Roster.Member(memberID); ok && member.DisplayName != "" {
		return truncate(member.DisplayName, displayNameMaxLength)
	}
	return fmt.Sprintf("<@!%s>", memberID)
}

// CommandResult is a handler's rendered outcome. A nil result means the
// interaction gets no reply at all.
type CommandResult struct {
	Content string
	Embed   *discordgo.MessageEmbed

	// IsFinished stamps the per-command cooldown clock
	IsFinished bool

	// IsSyntaxError marks a user-correctable mistake, counted toward the
	// syntax abuse limit
	IsSyntaxError bool

	// IsPermissionError marks a denied privileged command, counted toward
	// the permission abuse limit
	IsPermissionError bool
}

// Command pairs a slash command schema with its handler. Entries missing
// either part are skipped at registration.
type Command struct {
	Name string

	// Cooldown is the per-guild minimum interval between finished
	// invocations. Zero means no per-command cooldown.
	Cooldown time.Duration

	Build func() *discordgo.ApplicationCommand
	Exec  func(ctx context.Context, req *CommandRequest) (*CommandResult, error)
}

// commandRegistry is the full static command set, assembled in one place.
func commandRegistry() []Command {
	return []Command{
		{
			Name:     "record",
			Cooldown: 30 * time.Second,
			Build:    buildRecordCommand,
			Exec:     execRecordCommand,
		},
		{
			Name:     "modify",
			Cooldown: 30 * time.Second,
			Build:    buildModifyCommand,
			Exec:     execModifyCommand,
		},
		{
			Name:     "report",
			Cooldown: time.Minute,
			Build:    buildReportCommand,
			Exec:     execReportCommand,
		},
		{
			Name:     "config",
			Cooldown: 5 * time.Second,
			Build:    buildConfigCommand,
			Exec:     execConfigCommand,
		},
		{
			Name:  "settings",
			Build: buildSettingsCommand,
			Exec:  execSettingsCommand,
		},
		{
			Name:  "name",
			Build: buildNameCommand,
			Exec:  execNameCommand,
		},
		{
			Name:  "raffle",
			Build: buildRaffleCommand,
			Exec:  execRaffleCommand,
		},
		{
			Name:  "help",
			Build: buildHelpCommand,
			Exec:  execHelpCommand,
		},
		{
			Name:  "hint",
			Build: buildHintCommand,
			Exec:  execHintCommand,
		},
	}
}

// buildCommandMap indexes well-formed registry entries by name. Entries
// missing a schema builder or a handler are logged and dropped.
func buildCommandMap(registry []Command, logger *slog.Logger) map[string]Command {
	commands := make(map[string]Command, len(registry))
	for _, command := range registry {
		if command.Name == "" || command.Build == nil || command.Exec == nil {
			logger.Warn(
				"skipping malformed command descriptor",
				"command_name", command.Name,
			)
			continue
		}
		commands[command.Name] = command
	}
	return commands
}

// commandSchemas collects the slash command schemas for bulk overwrite,
// in registry order.
func commandSchemas(registry []Command, logger *slog.Logger) []*discordgo.ApplicationCommand {
	schemas := make([]*discordgo.ApplicationCommand, 0, len(registry))
	for _, command := range registry {
		if command.Build == nil || command.Exec == nil {
			continue
		}
		schema := command.Build()
		if schema == nil {
			logger.Warn(
				"command builder returned no schema",
				"command_name", command.Name,
			)
			continue
		}
		schemas = append(schemas, schema)
	}
	return schemas
}

// decorateEmbed applies the shared response embed chrome: accent color,
// support server link and version footer. Fields the handler already set
// are preserved.
func decorateEmbed(embed *discordgo.MessageEmbed, locale string) *discordgo.MessageEmbed {
	if embed == nil {
		return nil
	}
	if embed.Color == 0 {
		embed.Color = embedColor
	}
	if embed.Title == "" {
		embed.Title = translate("system.text.support", locale)
		embed.URL = supportServerURL
	}
	if embed.Footer == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: "Version " + Version,
		}
	}
	return embed
}
