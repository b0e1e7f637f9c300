package commander

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// RosterMember is the slice of guild member state the bot needs for
// attendance: who they are, what they're called, and which roles they
// carry.
type RosterMember struct {
	ID          string
	DisplayName string
	RoleIDs     []string
	Bot         bool
}

// GuildRoster is a point-in-time snapshot of a guild's roles, members
// and voice channels, refreshed on the warm-up interval. Voice channel
// occupancy is intentionally not part of the snapshot, it's read live
// from the gateway state at command time.
type GuildRoster struct {
	GuildID string
	BuiltAt time.Time

	// Roles maps role ID to role name
	Roles map[string]string

	// Members maps member ID to member state
	Members map[string]RosterMember

	// VoiceChannels maps voice channel ID to channel name
	VoiceChannels map[string]string
}

// Member returns the roster entry for the given member ID.
func (r *GuildRoster) Member(memberID string) (RosterMember, bool) {
	m, ok := r.Members[memberID]
	return m, ok
}

// RoleName returns the role's name, falling back to the ID for roles
// deleted since the snapshot.
func (r *GuildRoster) RoleName(roleID string) string {
	if name, ok := r.Roles[roleID]; ok {
		return name
	}
	return roleID
}

// ChannelName returns the voice channel's name, falling back to the ID.
func (r *GuildRoster) ChannelName(channelID string) string {
	if name, ok := r.VoiceChannels[channelID]; ok {
		return name
	}
	return channelID
}

// HasAnyRole reports whether the member carries at least one of the
// given role IDs. An empty filter matches every member.
func (r *GuildRoster) HasAnyRole(memberID string, roleIDs []string) bool {
	if len(roleIDs) == 0 {
		return true
	}
	member, ok := r.Members[memberID]
	if !ok {
		return false
	}
	for _, want := range roleIDs {
		for _, have := range member.RoleIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

// EligibleMemberIDs returns the IDs of non-bot members carrying at
// least one of the given roles. An empty filter means every non-bot
// member is eligible.
func (r *GuildRoster) EligibleMemberIDs(roleIDs []string) []string {
	var ids []string
	for id, member := range r.Members {
		if member.Bot {
			continue
		}
		if r.HasAnyRole(id, roleIDs) {
			ids = append(ids, id)
		}
	}
	return ids
}

// memberDisplayName picks the server nickname when set, otherwise the
// global display name, otherwise the username.
func memberDisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// buildGuildRoster fetches a full roster snapshot for the guild: all
// roles, all members (paginated) and all voice channels.
func buildGuildRoster(
	session DiscordSessionHandler,
	guildID string,
) (*GuildRoster, error) {
	roster := &GuildRoster{
		GuildID:       guildID,
		BuiltAt:       time.Now(),
		Roles:         map[string]string{},
		Members:       map[string]RosterMember{},
		VoiceChannels: map[string]string{},
	}

	roles, err := session.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("error fetching guild roles: %w", err)
	}
	for _, role := range roles {
		roster.Roles[role.ID] = role.Name
	}

	channels, err := session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("error fetching guild channels: %w", err)
	}
	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildVoice ||
			channel.Type == discordgo.ChannelTypeGuildStageVoice {
			roster.VoiceChannels[channel.ID] = channel.Name
		}
	}

	after := ""
	for {
		members, err := session.GuildMembers(
			guildID,
			after,
			guildMembersPageSize,
		)
		if err != nil {
			return nil, fmt.Errorf("error fetching guild members: %w", err)
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			if member.User == nil {
				continue
			}
			roster.Members[member.User.ID] = RosterMember{
				ID:          member.User.ID,
				DisplayName: memberDisplayName(member),
				RoleIDs:     member.Roles,
				Bot:         member.User.Bot,
			}
			after = member.User.ID
		}
		if len(members) < guildMembersPageSize {
			break
		}
	}

	return roster, nil
}

// voiceOccupants returns the members currently connected to voice
// channels, keyed by channel ID, read from the live gateway state. Only
// channels in channelIDs are considered; an empty filter includes every
// voice channel.
func voiceOccupants(
	session DiscordSessionHandler,
	guildID string,
	channelIDs []string,
) (map[string][]string, error) {
	guild, err := session.StateGuild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error reading guild state: %w", err)
	}

	filter := map[string]struct{}{}
	for _, id := range channelIDs {
		filter[id] = struct{}{}
	}

	occupants := map[string][]string{}
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == "" {
			continue
		}
		if len(filter) > 0 {
			if _, ok := filter[vs.ChannelID]; !ok {
				continue
			}
		}
		occupants[vs.ChannelID] = append(occupants[vs.ChannelID], vs.UserID)
	}
	return occupants, nil
}
