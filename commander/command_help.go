package commander

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

func buildHelpCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "Commander 使用說明",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "How to use Commander.",
		},
	}
}

func execHelpCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	return &CommandResult{
		Content: fill(
			req.T("help.text.manual"),
			"MANUAL", manualURL,
			"DISCORD", supportServerURL,
		),
	}, nil
}
