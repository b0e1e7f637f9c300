package commander

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

func buildRaffleCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "raffle",
		Description: "隨機抽選一名當前接聽語音頻道的成員",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Random pick a member in voice channels.",
		},
	}
}

// execRaffleCommand draws a random member from the invoker's current
// voice channel and reports the odds.
func execRaffleCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	if !req.IsAdmin() {
		return &CommandResult{
			Content:           req.T("system.error.adminOnly"),
			IsPermissionError: true,
		}, nil
	}

	channelID := invokerVoiceChannel(req)
	if channelID == "" {
		return &CommandResult{
			Content:       req.T("record.error.notInVoiceChannel"),
			IsSyntaxError: true,
		}, nil
	}

	occupants, err := voiceOccupants(
		req.Session,
		req.GuildID,
		[]string{channelID},
	)
	if err != nil {
		return nil, err
	}
	memberIDs := occupants[channelID]
	if len(memberIDs) == 0 {
		return &CommandResult{
			Content:       req.T("record.error.notInVoiceChannel"),
			IsSyntaxError: true,
		}, nil
	}
	sort.Strings(memberIDs)

	winnerID := memberIDs[rand.Intn(len(memberIDs))]
	odds := 100.0 / float64(len(memberIDs))

	return &CommandResult{
		Content: fill(req.T("raffle.text.result"), "MEMBER_ID", winnerID),
		Embed: &discordgo.MessageEmbed{
			Description: fill(
				req.T("raffle.text.description"),
				"TIME", req.CreatedAt.UTC().Format(time.RFC3339),
				"CHANNEL", escapeMarkdown(req.Roster.ChannelName(channelID)),
				"ALL_COUNT", fmt.Sprintf("%d", len(memberIDs)),
				"LUCK", fmt.Sprintf("%.2f", odds),
			),
		},
		IsFinished: true,
	}, nil
}
