package commander

import (
	"context"
	"math/rand"
	"sort"

	"github.com/bwmarrin/discordgo"
)

func buildHintCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "hint",
		Description: "隨機顯示一則 Commander 提示",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Show a Commander hint.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "key",
				Description: "指定提示",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "A specific hint key.",
				},
			},
		},
	}
}

// execHintCommand shows one hint from the hints cache: the keyed one if
// requested and present, otherwise a random one.
func execHintCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	options := discordInteractionOptions(req.Interaction)

	var hint string
	if option, ok := options["key"]; ok {
		hint, _ = req.Cache.Hint(option.StringValue())
	}
	if hint == "" {
		hints := req.Cache.Hints()
		if len(hints) > 0 {
			keys := make([]string, 0, len(hints))
			for key := range hints {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			hint = hints[keys[rand.Intn(len(keys))]]
		}
	}
	if hint == "" {
		return nil, nil
	}

	return &CommandResult{
		Content: req.T("hint.text.title"),
		Embed: &discordgo.MessageEmbed{
			Footer: &discordgo.MessageEmbedFooter{Text: "💡 " + hint},
		},
	}, nil
}
