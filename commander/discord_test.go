package commander

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// mockSession implements DiscordSessionHandler for tests, serving guild
// fixtures and recording outgoing traffic.
type mockSession struct {
	mu sync.Mutex

	guild    *discordgo.Guild
	roles    []*discordgo.Role
	members  []*discordgo.Member
	channels []*discordgo.Channel

	respondErr error

	responses       []*discordgo.InteractionResponse
	auditOutbox     []*discordgo.MessageSend
	registered      []*discordgo.ApplicationCommand
	responseFetches int
}

func (m *mockSession) Open() error  { return nil }
func (m *mockSession) Close() error { return nil }

func (m *mockSession) AddHandler(any) func() { return func() {} }

func (m *mockSession) ApplicationCommandBulkOverwrite(
	_ string,
	_ string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = commands
	return commands, nil
}

func (m *mockSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.respondErr != nil {
		return m.respondErr
	}
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockSession) InteractionResponse(
	_ *discordgo.Interaction,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responseFetches++
	return &discordgo.Message{ID: "response-1"}, nil
}

func (m *mockSession) ChannelMessageSendComplex(
	_ string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditOutbox = append(m.auditOutbox, data)
	return &discordgo.Message{}, nil
}

func (m *mockSession) GuildRoles(
	string,
	...discordgo.RequestOption,
) ([]*discordgo.Role, error) {
	return m.roles, nil
}

func (m *mockSession) GuildMembers(
	_ string,
	after string,
	limit int,
	_ ...discordgo.RequestOption,
) ([]*discordgo.Member, error) {
	start := 0
	if after != "" {
		for i, member := range m.members {
			if member.User != nil && member.User.ID == after {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(m.members) {
		end = len(m.members)
	}
	if start >= len(m.members) {
		return nil, nil
	}
	return m.members[start:end], nil
}

func (m *mockSession) GuildChannels(
	string,
	...discordgo.RequestOption,
) ([]*discordgo.Channel, error) {
	return m.channels, nil
}

func (m *mockSession) StateGuild(string) (*discordgo.Guild, error) {
	if m.guild == nil {
		return nil, discordgo.ErrStateNotFound
	}
	return m.guild, nil
}

func (m *mockSession) StateGuildCount() int {
	if m.guild == nil {
		return 0
	}
	return 1
}

func (m *mockSession) UpdateCustomStatus(string) error { return nil }

func (m *mockSession) SetLogLevel(slog.Level) error { return nil }

func (m *mockSession) sentResponses() []*discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.InteractionResponse{}, m.responses...)
}

func (m *mockSession) responseFetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseFetches
}

func (m *mockSession) sentAudits() []*discordgo.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*discordgo.MessageSend{}, m.auditOutbox...)
}

// newCommandInteraction builds an application command interaction fixture.
// The member carries the Administrator permission unless admin is false.
func newCommandInteraction(
	guildID string,
	userID string,
	commandName string,
	admin bool,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	var permissions int64
	if admin {
		permissions = discordgo.PermissionAdministrator
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:        "1096187008000000000",
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: "channel-1",
			Member: &discordgo.Member{
				User:        &discordgo.User{ID: userID, Username: "tester"},
				Permissions: permissions,
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    commandName,
				Options: options,
			},
		},
	}
}

func stringOption(name string, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:  discordgo.ApplicationCommandOptionString,
		Name:  name,
		Value: value,
	}
}

func subOption(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Name:    name,
		Options: options,
	}
}
