package commander

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func buildModifyCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "modify",
		Description: "修改指定日期的出席紀錄",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Edit record of specific date.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "date",
				Description: "日期格式：YYYYMMDD",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Date in YYYYMMDD format.",
				},
				Required: true,
			},
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
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "users",
				Description: "標記成員",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Use @ to mention one or more members.",
				},
				Required: true,
			},
		},
	}
}

// execModifyCommand read-modify-writes one day's attendance record,
// adding or removing the mentioned members, and reports the members
// whose state actually changed.
func execModifyCommand(
	ctx context.Context,
	req *CommandRequest,
) (*CommandResult, error) {
	if !req.IsAdmin() {
		return &CommandResult{
			Content:           req.T("system.error.adminOnly"),
			IsPermissionError: true,
		}, nil
	}

	options := discordInteractionOptions(req.Interaction)
	date := options["date"].StringValue()
	action := options["action"].StringValue()
	users := options["users"].StringValue()

	if !isValidRecordDate(date) {
		return &CommandResult{
			Content:       req.T("report.error.invalidDate"),
			IsSyntaxError: true,
		}, nil
	}

	targetMemberIDs := mentionedUserIDs(users)
	if len(targetMemberIDs) == 0 {
		return &CommandResult{
			Content:       req.T("modify.error.noMentionedUsers"),
			IsSyntaxError: true,
		}, nil
	}

	recordPath := refPath(pathRecords, req.GuildID, date)
	var raw string
	if err := req.Store.Get(ctx, recordPath, &raw); err != nil && !isNotFound(err) {
		return nil, err
	}
	record := ParseAttendanceRecord(raw)

	var modified []string
	resultKey := "modify.text.resultAdd"
	if action == "add" {
		modified = record.Add(targetMemberIDs...)
	} else {
		modified = record.Remove(targetMemberIDs...)
		resultKey = "modify.text.resultRemove"
	}

	if err := req.Store.Set(ctx, recordPath, record.String()); err != nil {
		return nil, err
	}

	guildName := req.GuildID
	if guild, err := req.Session.StateGuild(req.GuildID); err == nil {
		guildName = escapeMarkdown(guild.Name)
	}

	names := make([]string, 0, len(modified))
	for _, memberID := range modified {
		names = append(names, escapeMarkdown(req.DisplayName(memberID)))
	}

	return &CommandResult{
		Content: fill(
			req.T(resultKey),
			"GUILD_NAME", guildName,
			"DATE", date,
			"COUNT", strconv.Itoa(len(modified)),
		),
		Embed: &discordgo.MessageEmbed{
			Description: fill(
				req.T("modify.text.resultDescription"),
				"DATE", date,
				"MEMBERS", truncate(
					strings.Join(names, "、"),
					discordMaxFieldLength,
				),
			),
		},
		IsFinished: true,
	}, nil
}
