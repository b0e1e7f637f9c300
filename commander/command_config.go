package commander

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func buildConfigCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "config",
		Description: "修改 Commander 偏好設定",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Edit the configurations of Commander.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "all",
				Description: "列出當前所有設定",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Show all configs.",
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "locale",
				Description: "變更機器人語言",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Change bot language.",
				},
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "locale",
						Description: "語言環境",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "Choose language.",
						},
						Required: true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "zh-TW", Value: "zh-TW"},
							{Name: "en-US", Value: "en-US"},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "channels",
				Description: "編輯點名頻道",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Edit target voice channels.",
				},
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "action",
						Description: "新增或移除",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "Add or remove.",
						},
						Required: true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{
								Name: "新增",
								NameLocalizations: map[discordgo.Locale]string{
									discordgo.EnglishUS: "Add",
								},
								Value: "add",
							},
							{
								Name: "移除",
								NameLocalizations: map[discordgo.Locale]string{
									discordgo.EnglishUS: "Remove",
								},
								Value: "remove",
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "voice",
						Description: "請選擇一個語音頻道",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "Select a voice channel.",
						},
						Required: true,
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildVoice,
							discordgo.ChannelTypeGuildStageVoice,
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "roles",
				Description: "編輯點名對象",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Edit target roles.",
				},
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "roles",
						Description: "請標記身份組",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "Use @ to mention one or more roles.",
						},
						Required: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "admin",
				Description: "設定點名隊長",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Make a role able to use commands.",
				},
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "請選擇一個身份組",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "Select a role.",
						},
						Required: true,
					},
				},
			},
		},
	}
}

// execConfigCommand mutates the guild's stored settings, store first and
// cache second, and echoes the effective settings back.
func execConfigCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	if !req.IsAdmin() {
		return &CommandResult{
			Content:           req.T("system.error.adminOnly"),
			IsPermissionError: true,
		}, nil
	}

	subcommand, options := subcommandOptions(req.Interaction)
	switch subcommand {
	case "all":
		guildName := req.GuildID
		if guild, err := req.Session.StateGuild(req.GuildID); err == nil {
			guildName = escapeMarkdown(guild.Name)
		}
		return &CommandResult{
			Content:    fill(req.T("config.text.list"), "GUILD_NAME", guildName),
			Embed:      settingsEmbed(req, req.Settings()),
			IsFinished: true,
		}, nil
	case "locale":
		return execConfigLocale(ctx, req, options["locale"].StringValue())
	case "channels":
		return execConfigChannels(
			ctx,
			req,
			options["action"].StringValue(),
			stringOptionValue(options, "voice"),
		)
	case "roles":
		return execConfigRoles(ctx, req, options["roles"].StringValue())
	case "admin":
		return execConfigAdmin(ctx, req, stringOptionValue(options, "role"))
	default:
		return nil, nil
	}
}

func execConfigLocale(
	ctx context.Context,
	req *CommandRequest,
	locale string,
) (*CommandResult, error) {
	if !isSupportedLocale(locale) {
		return &CommandResult{
			Content:       req.T("config.error.invalidLocale"),
			IsSyntaxError: true,
		}, nil
	}

	path := refPath(pathSettings, req.GuildID, "locale")
	if err := req.Store.Set(ctx, path, locale); err != nil {
		return nil, err
	}
	settings := req.Settings()
	settings.Locale = locale
	req.Cache.SetSettings(req.GuildID, settings)

	return &CommandResult{
		Content: fill(
			translate("config.text.updateLocale", locale),
			"LOCALE", locale,
		),
		Embed:      settingsEmbed(req, settings),
		IsFinished: true,
	}, nil
}

func execConfigChannels(
	ctx context.Context,
	req *CommandRequest,
	action string,
	channelID string,
) (*CommandResult, error) {
	channelName, ok := req.Roster.VoiceChannels[channelID]
	if !ok {
		return &CommandResult{
			Content:       req.T("config.error.notVoiceChannel"),
			IsSyntaxError: true,
		}, nil
	}

	// rebuild from channels that still exist, then apply the change
	channelSet := map[string]struct{}{}
	settings := req.Settings()
	for _, id := range settings.ChannelIDs() {
		if _, exists := req.Roster.VoiceChannels[id]; exists {
			channelSet[id] = struct{}{}
		}
	}
	resultKey := "config.text.removeChannel"
	if action == "add" {
		channelSet[channelID] = struct{}{}
		resultKey = "config.text.addChannel"
	} else {
		delete(channelSet, channelID)
	}

	ids := make([]string, 0, len(channelSet))
	for id := range channelSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	value := strings.Join(ids, " ")

	path := refPath(pathSettings, req.GuildID, "channels")
	if value == "" {
		if err := req.Store.Delete(ctx, path); err != nil {
			return nil, err
		}
	} else if err := req.Store.Set(ctx, path, value); err != nil {
		return nil, err
	}
	settings.Channels = value
	req.Cache.SetSettings(req.GuildID, settings)

	return &CommandResult{
		Content: fill(
			req.T(resultKey),
			"CHANNEL_NAME", escapeMarkdown(channelName),
		),
		Embed:      settingsEmbed(req, settings),
		IsFinished: true,
	}, nil
}

func execConfigRoles(
	ctx context.Context,
	req *CommandRequest,
	roles string,
) (*CommandResult, error) {
	settings := req.Settings()
	path := refPath(pathSettings, req.GuildID, "roles")

	// @everyone resets the filter to everyone
	if strings.Contains(roles, "@everyone") {
		if err := req.Store.Delete(ctx, path); err != nil {
			return nil, err
		}
		settings.Roles = ""
		req.Cache.SetSettings(req.GuildID, settings)
		return &CommandResult{
			Content: fill(
				req.T("config.text.updateRoles"),
				"ROLE_NAMES", "@everyone",
			),
			Embed:      settingsEmbed(req, settings),
			IsFinished: true,
		}, nil
	}

	var roleIDs, roleNames []string
	for _, roleID := range mentionedRoleIDs(roles) {
		if name, ok := req.Roster.Roles[roleID]; ok {
			roleIDs = append(roleIDs, roleID)
			roleNames = append(roleNames, escapeMarkdown(name))
		}
	}
	if len(roleIDs) == 0 {
		return &CommandResult{
			Content:       req.T("config.error.noMentionedRoles"),
			IsSyntaxError: true,
		}, nil
	}

	value := strings.Join(roleIDs, " ")
	if err := req.Store.Set(ctx, path, value); err != nil {
		return nil, err
	}
	settings.Roles = value
	req.Cache.SetSettings(req.GuildID, settings)

	return &CommandResult{
		Content: fill(
			req.T("config.text.updateRoles"),
			"ROLE_NAMES", strings.Join(roleNames, "、"),
		),
		Embed:      settingsEmbed(req, settings),
		IsFinished: true,
	}, nil
}

func execConfigAdmin(
	ctx context.Context,
	req *CommandRequest,
	roleID string,
) (*CommandResult, error) {
	roleName, ok := req.Roster.Roles[roleID]
	if !ok {
		return &CommandResult{
			Content:       req.T("config.error.invalidRole"),
			IsSyntaxError: true,
		}, nil
	}

	path := refPath(pathSettings, req.GuildID, "admin")
	if err := req.Store.Set(ctx, path, roleID); err != nil {
		return nil, err
	}
	settings := req.Settings()
	settings.Admin = roleID
	req.Cache.SetSettings(req.GuildID, settings)

	return &CommandResult{
		Content: fill(
			req.T("config.text.updateAdmin"),
			"ROLE_NAME", escapeMarkdown(roleName),
		),
		Embed:      settingsEmbed(req, settings),
		IsFinished: true,
	}, nil
}

// settingsEmbed renders the guild's effective settings as a field block,
// shared by config and settings.
func settingsEmbed(req *CommandRequest, settings GuildSettings) *discordgo.MessageEmbed {
	locale := settings.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	channels := translate("config.text.defaultChannels", locale)
	if ids := settings.ChannelIDs(); len(ids) > 0 {
		var lines []string
		for i, id := range ids {
			lines = append(lines, fmt.Sprintf(
				"%d. %s", i+1, escapeMarkdown(req.Roster.ChannelName(id)),
			))
		}
		channels = strings.Join(lines, "\n")
	}

	roles := "@everyone"
	if ids := settings.RoleIDs(); len(ids) > 0 {
		var lines []string
		for i, id := range ids {
			lines = append(lines, fmt.Sprintf(
				"%d. %s", i+1, escapeMarkdown(req.Roster.RoleName(id)),
			))
		}
		roles = strings.Join(lines, "\n")
	}

	admin := translate("config.text.defaultAdmin", locale)
	if settings.Admin != "" {
		admin = fmt.Sprintf("<@&%s>", settings.Admin)
	}

	return &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Locale", Value: locale},
			{Name: "Channels", Value: truncate(channels, discordMaxFieldLength)},
			{Name: "Roles", Value: truncate(roles, discordMaxFieldLength)},
			{Name: "Admin", Value: admin},
		},
	}
}

// stringOptionValue reads a channel/role option as its raw ID, tolerating
// a missing option.
func stringOptionValue(
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) string {
	option, ok := options[name]
	if !ok {
		return ""
	}
	if s, ok := option.Value.(string); ok {
		return s
	}
	return ""
}
