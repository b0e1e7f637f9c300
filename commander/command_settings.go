package commander

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// resettableFields are the settings fields `/settings reset` may remove.
var resettableFields = []string{"locale", "channels", "roles", "admin", "prefix"}

func buildSettingsCommand() *discordgo.ApplicationCommand {
	fieldChoices := make(
		[]*discordgo.ApplicationCommandOptionChoice,
		0,
		len(resettableFields),
	)
	for _, field := range resettableFields {
		fieldChoices = append(fieldChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  field,
			Value: field,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        "settings",
		Description: "查看或重設伺服器設定",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Show or reset server settings.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "查看當前設定",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Show current settings.",
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "重設一個設定項目",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Reset one setting to its default.",
				},
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "field",
						Description: "設定項目",
						DescriptionLocalizations: map[discordgo.Locale]string{
							discordgo.EnglishUS: "The setting to reset.",
						},
						Required: true,
						Choices:  fieldChoices,
					},
				},
			},
		},
	}
}

// execSettingsCommand shows the effective settings, or removes one field
// so it falls back to its default. Reset is admin-only.
func execSettingsCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	subcommand, options := subcommandOptions(req.Interaction)

	if subcommand != "reset" {
		return &CommandResult{
			Content: req.T("settings.text.list"),
			Embed:   settingsEmbed(req, req.Settings()),
		}, nil
	}

	if !req.IsAdmin() {
		return &CommandResult{
			Content:           req.T("system.error.adminOnly"),
			IsPermissionError: true,
		}, nil
	}

	field := options["field"].StringValue()
	if !isResettableField(field) {
		fields := make([]string, 0, len(resettableFields))
		for _, f := range resettableFields {
			fields = append(fields, fmt.Sprintf("`%s`", f))
		}
		return &CommandResult{
			Content: fill(
				req.T("settings.error.unknownField"),
				"FIELDS", strings.Join(fields, " "),
			),
			IsSyntaxError: true,
		}, nil
	}

	path := refPath(pathSettings, req.GuildID, field)
	if err := req.Store.Delete(ctx, path); err != nil {
		return nil, err
	}

	settings := req.Settings()
	switch field {
	case "locale":
		settings.Locale = ""
	case "channels":
		settings.Channels = ""
	case "roles":
		settings.Roles = ""
	case "admin":
		settings.Admin = ""
	case "prefix":
		settings.Prefix = ""
	}
	req.Cache.SetSettings(req.GuildID, settings)

	return &CommandResult{
		Content:    fill(req.T("settings.text.reset"), "FIELD", field),
		Embed:      settingsEmbed(req, settings),
		IsFinished: true,
	}, nil
}

func isResettableField(field string) bool {
	for _, f := range resettableFields {
		if f == field {
			return true
		}
	}
	return false
}
