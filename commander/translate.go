package commander

import "strings"

// DefaultLocale is used when a guild has no locale configured.
const DefaultLocale = "zh-TW"

// supportedLocales are the locales offered by `/config locale`.
var supportedLocales = []string{"zh-TW", "en-US"}

func isSupportedLocale(locale string) bool {
	for _, l := range supportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// translations holds all user-facing response strings, keyed by locale
// then message key. Placeholders use the {NAME} form and are filled at
// call sites with [fill].
var translations = map[string]map[string]string{
	"zh-TW": {
		"system.text.processing": ":hourglass: 指令處理中，請稍等一下",
		"system.text.cooling":    ":snowflake: 指令冷卻中，請稍後再試",
		"system.text.support":    "Commander 點名機器人",
		"system.text.apology":    ":fire: 指令發生未知錯誤，請稍後再試",
		"system.error.adminOnly": ":lock: 這個指令限「點名隊長」使用",

		"record.error.notInVoiceChannel": ":x: 未接聽語音頻道",
		"record.error.noValidChannels":   ":x: 找不到有效語音頻道",
		"record.error.emptyChannels":     ":x: 語音頻道內好像沒有人？點名頻道：{CHANNELS}",
		"record.text.result":             ":triangular_flag_on_post: `{DATE}` 點名紀錄：",
		"record.text.channels":           "點名頻道:{CHANNELS}",
		"record.text.attendees":          "出席成員 {COUNT} 人",
		"record.text.prunedChannels":     "已移除失效的點名頻道:{CHANNELS}",

		"modify.error.noMentionedUsers": ":x: 請標記至少一位成員",
		"modify.text.resultAdd":         ":triangular_flag_on_post: {GUILD_NAME} `{DATE}` 新增 {COUNT} 人",
		"modify.text.resultRemove":      ":triangular_flag_on_post: {GUILD_NAME} `{DATE}` 移除 {COUNT} 人",
		"modify.text.resultDescription": "`{DATE}` 變更成員:{MEMBERS}",

		"report.error.invalidDate":  ":x: 請輸入正確日期格式 `YYYYMMDD`",
		"report.error.futureDate":   ":x: 結束日期不可在未來",
		"report.error.rangeTooLong": ":x: 查詢區間超過一個月",
		"report.error.noRecords":    ":x: 這段時間內沒有紀錄",
		"report.text.result":        ":triangular_flag_on_post: 出席統計 `{START_DATE}` ~ `{END_DATE}`",
		"report.text.recordCount":   "點名紀錄:{COUNT} 次",
		"report.text.attendedCount": "出席 {COUNT} 次",

		"config.text.list":              ":gear: {GUILD_NAME} 當前設定:",
		"config.text.defaultChannels":   "指令使用者接聽的頻道",
		"config.text.defaultAdmin":      "擁有管理權限的成員",
		"config.text.updateLocale":      ":gear: 機器人語言已設定為 `{LOCALE}`",
		"config.text.addChannel":        ":gear: 已新增點名頻道 {CHANNEL_NAME}",
		"config.text.removeChannel":     ":gear: 已移除點名頻道 {CHANNEL_NAME}",
		"config.text.updateRoles":       ":gear: 點名對象已設定為 {ROLE_NAMES}",
		"config.text.updateAdmin":       ":gear: 點名隊長已設定為 {ROLE_NAME}",
		"config.error.invalidLocale":    ":x: 不支援這個語言",
		"config.error.notVoiceChannel":  ":x: 請選擇一個語音頻道",
		"config.error.noMentionedRoles": ":x: 請標記至少一個身份組",
		"config.error.invalidRole":      ":x: 找不到這個身份組",

		"settings.text.list":          ":gear: 伺服器設定:",
		"settings.text.reset":         ":gear: `{FIELD}` 已重設為預設值",
		"settings.error.unknownField": ":x: 沒有這個設定項目，可以重設的項目:{FIELDS}",

		"name.text.current": ":triangular_flag_on_post: {USER_TAG} 的顯示名稱為:{NICKNAME}",
		"name.text.updated": ":triangular_flag_on_post: {USER_TAG} 的顯示名稱已改為:{NICKNAME}",

		"raffle.text.result":      ":triangular_flag_on_post: 中獎人為:<@{MEMBER_ID}>",
		"raffle.text.description": "抽獎時間:`{TIME}`\n抽獎頻道:{CHANNEL}\n參與人數:{ALL_COUNT}\n中獎機率:{LUCK}%",

		"help.text.manual": ":triangular_flag_on_post: Commander 點名機器人\n說明文件:<{MANUAL}>\n支援伺服器:{DISCORD}\n\n點名紀錄:`record`、`report`、`modify`\n基本設定:`name`、`settings`、`config`",

		"hint.text.title": ":bulb: Commander 提示",
	},
	"en-US": {
		"system.text.processing": ":hourglass: Still working on the last command, hold on.",
		"system.text.cooling":    ":snowflake: Command is cooling down, try again later.",
		"system.text.support":    "Commander",
		"system.text.apology":    ":fire: Something went wrong, please try again later.",
		"system.error.adminOnly": ":lock: This command is restricted to commanders.",

		"record.error.notInVoiceChannel": ":x: You are not in a voice channel.",
		"record.error.noValidChannels":   ":x: No valid voice channels found.",
		"record.error.emptyChannels":     ":x: Nobody seems to be in voice. Target channels: {CHANNELS}",
		"record.text.result":             ":triangular_flag_on_post: Attendance for `{DATE}`:",
		"record.text.channels":           "Target channels: {CHANNELS}",
		"record.text.attendees":          "{COUNT} members attended",
		"record.text.prunedChannels":     "Removed stale target channels: {CHANNELS}",

		"modify.error.noMentionedUsers": ":x: Mention at least one member.",
		"modify.text.resultAdd":         ":triangular_flag_on_post: {GUILD_NAME} `{DATE}`: added {COUNT} members",
		"modify.text.resultRemove":      ":triangular_flag_on_post: {GUILD_NAME} `{DATE}`: removed {COUNT} members",
		"modify.text.resultDescription": "Changed members on `{DATE}`: {MEMBERS}",

		"report.error.invalidDate":  ":x: Dates must use the `YYYYMMDD` format.",
		"report.error.futureDate":   ":x: The end date cannot be in the future.",
		"report.error.rangeTooLong": ":x: The date range exceeds one month.",
		"report.error.noRecords":    ":x: No records in this period.",
		"report.text.result":        ":triangular_flag_on_post: Attendance report `{START_DATE}` ~ `{END_DATE}`",
		"report.text.recordCount":   "Records: {COUNT}",
		"report.text.attendedCount": "Attended {COUNT} times",

		"config.text.list":              ":gear: Current configs of {GUILD_NAME}:",
		"config.text.defaultChannels":   "The voice channel the invoker is in",
		"config.text.defaultAdmin":      "Members with administrator permission",
		"config.text.updateLocale":      ":gear: Bot language is now `{LOCALE}`",
		"config.text.addChannel":        ":gear: Added target channel {CHANNEL_NAME}",
		"config.text.removeChannel":     ":gear: Removed target channel {CHANNEL_NAME}",
		"config.text.updateRoles":       ":gear: Target roles are now {ROLE_NAMES}",
		"config.text.updateAdmin":       ":gear: Commander role is now {ROLE_NAME}",
		"config.error.invalidLocale":    ":x: Locale not supported.",
		"config.error.notVoiceChannel":  ":x: Please select a voice channel.",
		"config.error.noMentionedRoles": ":x: Mention at least one role.",
		"config.error.invalidRole":      ":x: Role not found.",

		"settings.text.list":          ":gear: Server settings:",
		"settings.text.reset":         ":gear: `{FIELD}` has been reset to its default.",
		"settings.error.unknownField": ":x: Unknown setting. Resettable fields: {FIELDS}",

		"name.text.current": ":triangular_flag_on_post: Display name of {USER_TAG}: {NICKNAME}",
		"name.text.updated": ":triangular_flag_on_post: Display name of {USER_TAG} is now: {NICKNAME}",

		"raffle.text.result":      ":triangular_flag_on_post: The winner is <@{MEMBER_ID}>",
		"raffle.text.description": "Time: `{TIME}`\nChannel: {CHANNEL}\nParticipants: {ALL_COUNT}\nOdds: {LUCK}%",

		"help.text.manual": ":triangular_flag_on_post: Commander\nManual: <{MANUAL}>\nSupport server: {DISCORD}\n\nAttendance: `record`, `report`, `modify`\nSettings: `name`, `settings`, `config`",

		"hint.text.title": ":bulb: Commander hints",
	},
}

// translate resolves a message key for the given locale, falling back to
// the default locale and then to the key itself.
func translate(key string, locale string) string {
	if msg, ok := translations[locale][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// fill substitutes {NAME} placeholders. Pairs alternate placeholder name
// and value.
func fill(template string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}
