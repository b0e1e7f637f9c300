package commander

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// reportMaxRangeDays caps the report query span
const reportMaxRangeDays = 31

func buildReportCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "report",
		Description: "統計一段時間內的出席紀錄",
		DescriptionLocalizations: &map[discordgo.Locale]string{
			discordgo.EnglishUS: "Attendance report for a date range.",
		},
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "start",
				Description: "起始日期，格式 YYYYMMDD，預設七天前",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "Start date (YYYYMMDD), defaults to 7 days ago.",
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "end",
				Description: "結束日期，格式 YYYYMMDD，預設今天",
				DescriptionLocalizations: map[discordgo.Locale]string{
					discordgo.EnglishUS: "End date (YYYYMMDD), defaults to today.",
				},
			},
		},
	}
}

// execReportCommand runs an ordered key-range query over the guild's
// records and renders per-member attendance counts, grouped by count.
func execReportCommand(
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
	today := recordDate(req.CreatedAt)
	startDate := recordDate(req.CreatedAt.AddDate(0, 0, -6))
	endDate := today
	if option, ok := options["start"]; ok {
		startDate = option.StringValue()
	}
	if option, ok := options["end"]; ok {
		endDate = option.StringValue()
	}

	if !isValidRecordDate(startDate) || !isValidRecordDate(endDate) ||
		startDate > endDate {
		return &CommandResult{
			Content:       req.T("report.error.invalidDate"),
			IsSyntaxError: true,
		}, nil
	}
	if endDate > today {
		return &CommandResult{
			Content:       req.T("report.error.futureDate"),
			IsSyntaxError: true,
		}, nil
	}
	start, _ := time.Parse(recordDateLayout, startDate)
	end, _ := time.Parse(recordDateLayout, endDate)
	if end.Sub(start) > reportMaxRangeDays*24*time.Hour {
		return &CommandResult{
			Content:       req.T("report.error.rangeTooLong"),
			IsSyntaxError: true,
		}, nil
	}

	records, err := req.Store.QueryByKeyRange(
		ctx,
		refPath(pathRecords, req.GuildID),
		startDate,
		endDate,
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &CommandResult{
			Content: req.T("report.error.noRecords"),
		}, nil
	}

	counts := map[string]int{}
	dates := make([]string, 0, len(records))
	for _, kv := range records {
		dates = append(dates, fmt.Sprintf("`%s`", kv.Key))
		for _, memberID := range ParseAttendanceRecord(kv.Value).MemberIDs() {
			counts[memberID]++
		}
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name: fill(
				req.T("report.text.recordCount"),
				"COUNT", strconv.Itoa(len(records)),
			),
			Value: truncate(strings.Join(dates, " "), discordMaxFieldLength),
		},
	}

	// one field per attendance count, most attended first
	for count := len(records); count >= 1; count-- {
		var names []string
		for memberID, attended := range counts {
			if attended == count {
				names = append(names, escapeMarkdown(req.DisplayName(memberID)))
			}
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fill(
				req.T("report.text.attendedCount"),
				"COUNT", strconv.Itoa(count),
			),
			Value: truncate(strings.Join(names, "、"), discordMaxFieldLength),
		})
	}

	return &CommandResult{
		Content: fill(
			req.T("report.text.result"),
			"START_DATE", startDate,
			"END_DATE", endDate,
		),
		Embed:      &discordgo.MessageEmbed{Fields: fields},
		IsFinished: true,
	}, nil
}
