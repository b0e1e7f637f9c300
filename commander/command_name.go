package commander

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

func buildNameCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "name",
		Description: "查看或變更點名紀錄中的顯示名稱",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Show or change your display name in records.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "新的顯示名稱",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "The new display name.",
				},
			},
		},
	}
}

// execNameCommand shows the invoker's current rendered name, or stores a
// new override under /names.
func execNameCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	options := discordInteractionOptions(req.Interaction)

	option, ok := options["name"]
	if !ok || option.StringValue() == "" {
		return &CommandResult{
			Content: fill(
				req.T("name.text.current"),
				"USER_TAG", escapeMarkdown(req.User.Username),
				"NICKNAME", escapeMarkdown(req.DisplayName(req.User.ID)),
			),
		}, nil
	}

	newName := truncate(option.StringValue(), displayNameMaxLength)
	path := refPath(pathNames, req.User.ID)
	if err := req.Store.Set(ctx, path, newName); err != nil {
		return nil, err
	}
	req.Cache.SetName(req.User.ID, newName)

	return &CommandResult{
		Content: fill(
			req.T("name.text.updated"),
			"USER_TAG", escapeMarkdown(req.User.Username),
			"NICKNAME", escapeMarkdown(newName),
		),
		IsFinished: true,
	}, nil
}
