package commander

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func buildRecordCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "record",
		Description: "記錄當前語音頻道內的成員",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Record members in voice channels.",
		},
	}
}

// execRecordCommand writes today's attendance: occupants of the
// configured target channels (or the invoker's current voice channel),
// filtered by the configured roles, stored as the full day record.
func execRecordCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	settings := req.Settings()

	targetChannelIDs, pruned := resolveTargetChannels(req, settings)
	if len(targetChannelIDs) == 0 && len(pruned) > 0 {
		// every configured channel is gone; self-heal the settings before
		// reporting the error
		if err := pruneChannels(ctx, req, settings, nil); err != nil {
			return nil, err
		}
		return &CommandResult{
			Content:       req.T("record.error.noValidChannels"),
			IsSyntaxError: true,
		}, nil
	}
	if len(targetChannelIDs) == 0 {
		return &CommandResult{
			Content:       req.T("record.error.notInVoiceChannel"),
			IsSyntaxError: true,
		}, nil
	}

	occupants, err := voiceOccupants(req.Session, req.GuildID, targetChannelIDs)
	if err != nil {
		return nil, err
	}

	roleIDs := settings.RoleIDs()
	attendees := map[string]struct{}{}
	for _, memberIDs := range occupants {
		for _, memberID := range memberIDs {
			if member, ok := req.Roster.Member(memberID); ok && member.Bot {
				continue
			}
			if !req.Roster.HasAnyRole(memberID, roleIDs) {
				continue
			}
			attendees[memberID] = struct{}{}
		}
	}

	channelNames := make([]string, 0, len(targetChannelIDs))
	for _, channelID := range targetChannelIDs {
		channelNames = append(
			channelNames,
			escapeMarkdown(req.Roster.ChannelName(channelID)),
		)
	}
	joinedChannels := strings.Join(channelNames, "、")

	if len(attendees) == 0 {
		return &CommandResult{
			Content: fill(
				req.T("record.error.emptyChannels"),
				"CHANNELS", joinedChannels,
			),
		}, nil
	}

	record := NewAttendanceRecord()
	for memberID := range attendees {
		record.Add(memberID)
	}

	date := recordDate(req.CreatedAt)
	err = req.Store.Set(
		ctx,
		refPath(pathRecords, req.GuildID, date),
		record.String(),
	)
	if err != nil {
		return nil, err
	}

	if len(pruned) > 0 {
		if err := pruneChannels(ctx, req, settings, targetChannelIDs); err != nil {
			req.Logger.Warn("error pruning stale channels", "channels", pruned)
		}
	}

	names := make([]string, 0, record.Len())
	for _, memberID := range record.MemberIDs() {
		names = append(names, escapeMarkdown(req.DisplayName(memberID)))
	}

	description := fill(req.T("record.text.channels"), "CHANNELS", joinedChannels)
	if len(pruned) > 0 {
		description += "\n" + fill(
			req.T("record.text.prunedChannels"),
			"CHANNELS", strings.Join(pruned, "、"),
		)
	}

	return &CommandResult{
		Content: fill(req.T("record.text.result"), "DATE", date),
		Embed: &discordgo.MessageEmbed{
			Description: description,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name: fill(
						req.T("record.text.attendees"),
						"COUNT", strconv.Itoa(record.Len()),
					),
					Value: truncate(
						strings.Join(names, "、"),
						discordMaxFieldLength,
					),
				},
			},
		},
		IsFinished: true,
	}, nil
}

// resolveTargetChannels picks the channels to record: configured channels
// filtered to ones that still exist as voice channels, falling back to
// the invoker's current voice channel when none are configured. Stale
// configured IDs are returned for pruning.
func resolveTargetChannels(
	req *CommandRequest,
	settings GuildSettings,
) (valid []string, pruned []string) {
	configured := settings.ChannelIDs()
	if len(configured) == 0 {
		if channelID := invokerVoiceChannel(req); channelID != "" {
			return []string{channelID}, nil
		}
		return nil, nil
	}

	for _, channelID := range configured {
		if _, ok := req.Roster.VoiceChannels[channelID]; ok {
			valid = append(valid, channelID)
		} else {
			pruned = append(pruned, channelID)
		}
	}
	return valid, pruned
}

// invokerVoiceChannel returns the voice channel the invoker is currently
// connected to, from live gateway state.
func invokerVoiceChannel(req *CommandRequest) string {
	guild, err := req.Session.StateGuild(req.GuildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == req.User.ID {
			return vs.ChannelID
		}
	}
	return ""
}

// pruneChannels rewrites the guild's channels setting to only the still
// valid IDs, removing the field entirely when none remain.
func pruneChannels(
	ctx context.Context,
	req *CommandRequest,
	settings GuildSettings,
	valid []string,
) error {
	path := refPath(pathSettings, req.GuildID, "channels")
	if len(valid) == 0 {
		if err := req.Store.Delete(ctx, path); err != nil {
			return fmt.Errorf("error removing channels setting: %w", err)
		}
		settings.Channels = ""
	} else {
		value := strings.Join(valid, " ")
		if err := req.Store.Set(ctx, path, value); err != nil {
			return fmt.Errorf("error updating channels setting: %w", err)
		}
		settings.Channels = value
	}
	req.Cache.SetSettings(req.GuildID, settings)
	return nil
}
