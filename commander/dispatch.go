package commander

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
)

// denyReason says why the guard rejected a dispatch.
type denyReason int

const (
	denyNone denyReason = iota

	// denyBusy means a handler is already in flight for the guild
	denyBusy

	// denyCooling means the global or per-command cooldown hasn't elapsed
	denyCooling
)

func (d denyReason) String() string {
	switch d {
	case denyBusy:
		return "busy"
	case denyCooling:
		return "cooling"
	default:
		return "none"
	}
}

// guildGuard enforces the per-guild concurrency contract: at most one
// in-flight handler per guild, a global cooldown after every replied
// command, and per-command cooldowns stamped only by finished handlers.
//
// Cooldowns expire lazily against the clock on the next acquire attempt.
// There are no timers.
type guildGuard struct {
	mu sync.Mutex

	globalCooldown time.Duration

	processing   map[string]bool
	coolingUntil map[string]time.Time
	lastUsedAt   map[string]map[string]time.Time
}

func newGuildGuard(globalCooldown time.Duration) *guildGuard {
	return &guildGuard{
		globalCooldown: globalCooldown,
		processing:     map[string]bool{},
		coolingUntil:   map[string]time.Time{},
		lastUsedAt:     map[string]map[string]time.Time{},
	}
}

// tryAcquire attempts to take the guild for the given command at event
// time t. On success the guild is in the processing state and the caller
// must release it.
func (g *guildGuard) tryAcquire(
	guildID string,
	command Command,
	t time.Time,
) (bool, denyReason) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.processing[guildID] {
		return false, denyBusy
	}

	if until, ok := g.coolingUntil[guildID]; ok {
		if t.Before(until) {
			return false, denyCooling
		}
		delete(g.coolingUntil, guildID)
	}

	if command.Cooldown > 0 {
		if last, ok := g.lastUsedAt[guildID][command.Name]; ok {
			if t.Sub(last) < command.Cooldown {
				return false, denyCooling
			}
		}
	}

	g.processing[guildID] = true
	return true, denyNone
}

// release returns the guild to the idle state. replied starts the global
// cooldown; finished stamps the per-command clock.
func (g *guildGuard) release(
	guildID string,
	command Command,
	t time.Time,
	replied bool,
	finished bool,
) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.processing, guildID)

	if replied && g.globalCooldown > 0 {
		g.coolingUntil[guildID] = t.Add(g.globalCooldown)
	}
	if finished {
		if g.lastUsedAt[guildID] == nil {
			g.lastUsedAt[guildID] = map[string]time.Time{}
		}
		g.lastUsedAt[guildID][command.Name] = t
	}
}

// processingCount returns the number of guilds with an in-flight handler.
func (g *guildGuard) processingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.processing)
}

// Dispatcher routes gateway interactions to command handlers, owning the
// guard, the per-guild roster snapshots and the abuse containment.
type Dispatcher struct {
	config   *DispatchConfig
	cache    *GuildCache
	store    Store
	commands map[string]Command
	guard    *guildGuard
	limiter  *rate.Limiter
	auditor  *auditLogger
	logger   *slog.Logger

	rosterMu sync.RWMutex
	rosters  map[string]*GuildRoster

	statsMu sync.Mutex
	served  map[string]int64
}

func newDispatcher(
	config *DispatchConfig,
	cache *GuildCache,
	store Store,
	commands map[string]Command,
	auditor *auditLogger,
	logger *slog.Logger,
) *Dispatcher {
	eventsPerSecond := config.EventsPerSecond
	if eventsPerSecond <= 0 {
		eventsPerSecond = DefaultDispatchEventsPerSecond
	}
	return &Dispatcher{
		config:   config,
		cache:    cache,
		store:    store,
		commands: commands,
		guard:    newGuildGuard(config.GlobalCooldown),
		limiter:  rate.NewLimiter(rate.Limit(eventsPerSecond), eventsPerSecond),
		auditor:  auditor,
		logger:   logger,
		rosters:  map[string]*GuildRoster{},
		served:   map[string]int64{},
	}
}

// ServedCounts returns a copy of the per-command served counters.
func (d *Dispatcher) ServedCounts() map[string]int64 {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	counts := make(map[string]int64, len(d.served))
	for name, count := range d.served {
		counts[name] = count
	}
	return counts
}

// ProcessingGuilds returns the current guard occupancy.
func (d *Dispatcher) ProcessingGuilds() int {
	return d.guard.processingCount()
}

func (d *Dispatcher) countServed(commandName string) {
	d.statsMu.Lock()
	d.served[commandName]++
	d.statsMu.Unlock()
}

func (d *Dispatcher) roster(guildID string) *GuildRoster {
	d.rosterMu.RLock()
	defer d.rosterMu.RUnlock()
	return d.rosters[guildID]
}

func (d *Dispatcher) setRoster(roster *GuildRoster) {
	d.rosterMu.Lock()
	d.rosters[roster.GuildID] = roster
	d.rosterMu.Unlock()
}

// dropGuild discards a guild's roster snapshot, for guild-delete events.
func (d *Dispatcher) dropGuild(guildID string) {
	d.rosterMu.Lock()
	delete(d.rosters, guildID)
	d.rosterMu.Unlock()
}

// warmUp rebuilds the guild's roster snapshot and re-fetches its settings
// when the warm-up interval has elapsed. Returns the current roster.
func (d *Dispatcher) warmUp(
	ctx context.Context,
	session DiscordSessionHandler,
	guildID string,
	t time.Time,
) (*GuildRoster, error) {
	interval := d.config.WarmUpInterval
	if interval <= 0 {
		interval = DefaultWarmUpInterval
	}
	if roster := d.roster(guildID); roster != nil &&
		t.Sub(d.cache.WarmedAt(guildID)) <= interval {
		return roster, nil
	}

	roster, err := buildGuildRoster(session, guildID)
	if err != nil {
		return nil, err
	}

	var settings GuildSettings
	err = d.store.Get(ctx, refPath(pathSettings, guildID), &settings)
	switch {
	case err == nil:
		d.cache.SetSettings(guildID, settings)
	case isNotFound(err):
		d.cache.SetSettings(guildID, GuildSettings{})
	default:
		// keep the cached settings, the snapshot is still usable
		d.logger.Warn(
			"error refreshing guild settings",
			"guild_id", guildID,
			tint.Err(err),
		)
	}

	d.setRoster(roster)
	d.cache.SetWarmedAt(guildID, t)
	d.logger.Info(
		"guild warmed up",
		"guild_id", guildID,
		"members", len(roster.Members),
		"voice_channels", len(roster.VoiceChannels),
	)
	return roster, nil
}

// HandleInteraction is the gateway entrypoint for application command
// interactions. It applies, in order: the process-wide rate limit, ban
// checks, the guild guard, roster warm-up, the handler itself, the
// reply, abuse accounting and the audit mirror.
func (d *Dispatcher) HandleInteraction(
	ctx context.Context,
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" {
		return
	}

	user := getDiscordUser(i)
	if user == nil {
		return
	}

	if !d.limiter.Allow() {
		d.logger.Warn(
			"interaction dropped by rate limiter",
			"guild_id", i.GuildID,
			"user_id", user.ID,
		)
		return
	}

	if d.cache.Banned(user.ID) || d.cache.Banned(i.GuildID) {
		return
	}

	commandName := i.ApplicationCommandData().Name
	command, ok := d.commands[commandName]
	if !ok {
		d.logger.Warn("unknown command", "command_name", commandName)
		return
	}

	createdAt := snowflakeTime(i.ID)
	logger := d.logger.With(
		"command_name", commandName,
		"guild_id", i.GuildID,
		"user_id", user.ID,
		"interaction_id", i.ID,
	)
	ctx = WithLogger(ctx, logger)

	acquired, reason := d.guard.tryAcquire(i.GuildID, command, createdAt)
	if !acquired {
		d.replyEphemeralNotice(session, i, reason, logger)
		return
	}

	replied := false
	finished := false
	defer func() {
		d.guard.release(i.GuildID, command, createdAt, replied, finished)
	}()

	roster, err := d.warmUp(ctx, session, i.GuildID, createdAt)
	if err != nil {
		logger.Error("guild warm-up failed", tint.Err(err))
		d.auditor.commandFailed(session, i, err, nil)
		replied = d.replyApology(session, i, d.cache.Settings(i.GuildID).Locale, logger)
		return
	}

	req := &CommandRequest{
		Session:     session,
		Interaction: i,
		GuildID:     i.GuildID,
		User:        user,
		Roster:      roster,
		Cache:       d.cache,
		Store:       d.store,
		CreatedAt:   createdAt,
		Logger:      logger,
	}

	result, stack, execErr := d.execute(ctx, command, req)
	if execErr != nil {
		logger.Error("command failed", tint.Err(execErr))
		d.auditor.commandFailed(session, i, execErr, stack)
		replied = d.replyApology(session, i, req.Locale(), logger)
		return
	}
	if result == nil {
		return
	}

	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: result.Content,
		},
	}
	if embed := decorateEmbed(result.Embed, req.Locale()); embed != nil {
		response.Data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if err := session.InteractionRespond(i.Interaction, response); err != nil {
		logger.Error("error sending interaction response", tint.Err(err))
		d.auditor.commandFailed(session, i, err, nil)
		return
	}
	replied = true
	finished = result.IsFinished

	if logger.Enabled(ctx, slog.LevelDebug) {
		if msg, err := session.InteractionResponse(i.Interaction); err == nil {
			logger.Debug("interaction response delivered", "message_id", msg.ID)
		}
	}

	d.countServed(commandName)
	d.accountAbuse(ctx, user.ID, result, logger)
	d.auditor.commandServed(session, i, result, time.Since(createdAt))
}

// execute runs the handler with panic recovery, converting a panic into
// an ordinary handler error plus its stack.
func (d *Dispatcher) execute(
	ctx context.Context,
	command Command,
	req *CommandRequest,
) (result *CommandResult, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger, ok := ContextLogger(ctx)
			if !ok {
				logger = d.logger
			}
			logger.Error("recovered from handler panic", "panic", r)
			result = nil
			stack = debug.Stack()
			err = fmt.Errorf("command panic: %v", r)
		}
	}()
	result, err = command.Exec(ctx, req)
	return result, nil, err
}

// accountAbuse updates the per-user error counters and writes the ban
// when a limit is exceeded. The ban write propagates back through the
// store watch; the cache is updated eagerly so the very next interaction
// is already dropped.
func (d *Dispatcher) accountAbuse(
	ctx context.Context,
	userID string,
	result *CommandResult,
	logger *slog.Logger,
) {
	switch {
	case result.IsSyntaxError:
		count := d.cache.IncrSyntaxErrors(userID)
		if count > d.config.SyntaxErrorLimit {
			d.ban(ctx, userID, "syntax_errors", count, logger)
		}
	case result.IsPermissionError:
		count := d.cache.IncrPermissionErrors(userID)
		if count > d.config.PermissionErrorLimit {
			d.ban(ctx, userID, "permission_errors", count, logger)
		}
	default:
		d.cache.ResetSyntaxErrors(userID)
	}
}

func (d *Dispatcher) ban(
	ctx context.Context,
	userID string,
	kind string,
	count int,
	logger *slog.Logger,
) {
	logger.Warn("banning user", "reason", kind, "count", count)
	if err := d.store.Set(ctx, refPath(pathBanned, userID), true); err != nil {
		logger.Error("error writing ban", tint.Err(err))
	}
	d.cache.SetBanned(userID, true)
}

// replyEphemeralNotice answers a guard rejection with an ephemeral
// busy/cooling notice. Rejections never touch the store.
func (d *Dispatcher) replyEphemeralNotice(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	reason denyReason,
	logger *slog.Logger,
) {
	key := "system.text.cooling"
	if reason == denyBusy {
		key = "system.text.processing"
	}
	err := session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: translate(key, d.cache.Settings(i.GuildID).Locale),
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
	if err != nil {
		logger.Warn("error sending guard notice", "reason", reason.String(), tint.Err(err))
	}
}

// replyApology sends the generic failure reply. Stack traces never reach
// the invoking user. Reports whether a reply went out.
func (d *Dispatcher) replyApology(
	session DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	locale string,
	logger *slog.Logger,
) bool {
	err := session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: translate("system.text.apology", locale),
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
	if err != nil {
		logger.Warn("error sending apology", tint.Err(err))
		return false
	}
	return true
}

// snowflakeTime extracts the creation time embedded in a discord
// snowflake ID, falling back to the current time for malformed IDs.
func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Now()
	}
	return t
}
