package commander

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

var (
	userMentionPattern = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern = regexp.MustCompile(`<@&(\d+)>`)
	markdownEscaper    = strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"~", "\\~",
		"|", "\\|",
	)
)

// splitIDs splits a space-joined ID list, dropping empty segments.
func splitIDs(joined string) []string {
	return strings.Fields(joined)
}

// mentionedUserIDs extracts user IDs from <@123> / <@!123> mentions,
// in order of appearance, deduplicated.
func mentionedUserIDs(s string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, match := range userMentionPattern.FindAllStringSubmatch(s, -1) {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// mentionedRoleIDs extracts role IDs from <@&123> mentions, in order of
// appearance, deduplicated.
func mentionedRoleIDs(s string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, match := range roleMentionPattern.FindAllStringSubmatch(s, -1) {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// escapeMarkdown escapes discord markdown control characters in names
// before embedding them in a response.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// truncate shortens the input string to a specified number of characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// discordInteractionOptions extracts the interaction options from a
// Discord interaction, keyed by option name.
func discordInteractionOptions(
	i *discordgo.InteractionCreate,
) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	optionMap := make(
		map[string]*discordgo.ApplicationCommandInteractionDataOption,
		len(options),
	)
	for _, option := range options {
		optionMap[option.Name] = option
	}
	return optionMap
}

// subcommandOptions returns the options of the named subcommand, keyed
// by option name, and whether the subcommand was invoked.
func subcommandOptions(
	i *discordgo.InteractionCreate,
) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 ||
		options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", nil
	}
	sub := options[0]
	optionMap := make(
		map[string]*discordgo.ApplicationCommandInteractionDataOption,
		len(sub.Options),
	)
	for _, option := range sub.Options {
		optionMap[option.Name] = option
	}
	return sub.Name, optionMap
}

// getDiscordUser returns the [discordgo.User] associated with the
// interaction. Users don't always appear in the same place in the
// interaction object, so this checks known areas.
func getDiscordUser(i *discordgo.InteractionCreate) *discordgo.User {
	u := i.User
	if u == nil && i.Member != nil {
		u = i.Member.User
	}
	return u
}
