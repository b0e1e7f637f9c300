// Package commander implements a Discord voice-channel attendance bot
// backed by the Firebase Realtime Database.
//
// The bot records which members are connected to a guild's voice
// channels, answers slash commands for editing and reporting those
// records, and keeps a per-guild cache of settings, display-name
// overrides and bans synced from the store.
package commander

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
)

// Set at build time via -ldflags
var (
	Version   = "dev"
	CommitSHA = ""
	BuildTime = ""
)

// Commander is the top-level bot: gateway session, store client, guild
// cache, dispatcher and status API.
type Commander struct {
	config     *Config
	logger     *slog.Logger
	cache      *GuildCache
	store      Store
	discord    *Discord
	dispatcher *Dispatcher
	auditor    *auditLogger
	api        *API
	registry   []Command

	startedAt time.Time

	// eventCtx is the context command handlers run under; it's canceled
	// when Run returns
	eventCtx       context.Context
	cancelEventCtx context.CancelFunc

	runMu sync.Mutex
}

// New validates the given config and wires up an unstarted bot.
func New(config *Config) (*Commander, error) {
	if config == nil {
		return nil, fmt.Errorf("nil config")
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(
		tint.NewHandler(
			os.Stdout, &tint.Options{
				Level:     config.LogLevel,
				AddSource: true,
			},
		),
	)
	slog.SetDefault(logger)

	bot := &Commander{
		config:   config,
		logger:   logger,
		cache:    NewGuildCache(),
		registry: commandRegistry(),
	}

	bot.discord = newDiscord(config.Discord)
	bot.discord.logger = slog.New(
		tint.NewHandler(
			os.Stdout, &tint.Options{
				Level:     config.Discord.LogLevel,
				AddSource: true,
			},
		),
	).With(loggerNameKey, "discord")
	bot.config.Discord.httpClient = config.HTTPClient

	session, err := bot.discord.newSession()
	if err != nil {
		return nil, err
	}
	bot.discord.session = session

	bot.auditor = newAuditLogger(
		config.Discord.LogChannelID,
		logger.With(loggerNameKey, "audit"),
	)
	bot.api = newAPI(bot, config.API)

	return bot, nil
}

// Run starts the bot and blocks until ctx is canceled or startup fails.
func (c *Commander) Run(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.startedAt = time.Now()
	c.eventCtx, c.cancelEventCtx = context.WithCancel(context.WithoutCancel(ctx))
	defer c.cancelEventCtx()

	startupCtx, cancelStartup := context.WithTimeout(ctx, c.config.StartupTimeout)
	defer cancelStartup()

	if err := c.initStore(startupCtx); err != nil {
		return err
	}

	// the ban list is the only live-synced collection; everything else is
	// read through or refreshed on warm-up
	go c.cache.SyncCollection(
		c.eventCtx,
		c.store,
		pathBanned,
		c.logger.With(loggerNameKey, "store_sync"),
	)

	c.dispatcher = newDispatcher(
		c.config.Dispatch,
		c.cache,
		c.store,
		buildCommandMap(c.registry, c.logger),
		c.auditor,
		c.logger.With(loggerNameKey, "dispatch"),
	)

	if err := c.openDiscord(startupCtx); err != nil {
		return err
	}

	apiErr := make(chan error, 1)
	go func() {
		c.logger.Info("starting status API", "listen", c.config.API.Listen)
		apiErr <- c.api.Serve(c.eventCtx)
	}()

	go c.statusLoop(c.eventCtx)

	c.logger.Info("bot started", "config", c.config)

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
		c.shutdown()
		return nil
	case err := <-apiErr:
		c.shutdown()
		return fmt.Errorf("status API stopped: %w", err)
	}
}

func (c *Commander) initStore(ctx context.Context) error {
	if c.store == nil {
		store, err := newFirebaseStore(
			ctx,
			c.config.Firebase,
			c.config.HTTPClient,
			c.logger.With(loggerNameKey, "store"),
		)
		if err != nil {
			return err
		}
		c.store = store
	}

	hints := map[string]string{}
	err := c.store.Get(ctx, pathHints, &hints)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("error loading hints: %w", err)
	}
	c.cache.SetHints(hints)
	c.logger.Info("hints loaded", "count", len(hints))
	return nil
}

// openDiscord registers the gateway event handlers, opens the session
// and pushes the slash command schemas.
func (c *Commander) openDiscord(ctx context.Context) error {
	session := c.discord.session

	c.discord.discordgoRemoveHandlerFuncs = []func(){
		session.AddHandler(c.handleReady),
		session.AddHandler(c.handleConnect),
		session.AddHandler(c.handleDisconnect),
		session.AddHandler(c.handleGuildCreate),
		session.AddHandler(c.handleGuildDelete),
		session.AddHandler(c.handleInteractionCreate),
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}
	c.discord.connected.Store(true)

	// registration failure is recoverable (previously registered schemas
	// keep working), so it's logged but not fatal
	_, err := c.discord.registerCommands(
		c.config.Discord.ApplicationID,
		c.config.Discord.GuildID,
		commandSchemas(c.registry, c.logger),
	)
	if err != nil {
		c.logger.Error("error registering commands", tint.Err(err))
	}
	return nil
}

func (c *Commander) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		c.config.ShutdownTimeout,
	)
	defer cancel()

	for _, removeHandler := range c.discord.discordgoRemoveHandlerFuncs {
		removeHandler()
	}
	if err := c.discord.session.Close(); err != nil {
		c.logger.Error("error closing discord session", tint.Err(err))
	}
	c.discord.connected.Store(false)

	if err := c.api.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("error shutting down status API", tint.Err(err))
	}
}

// statusLoop periodically refreshes the bot's custom status with the
// current guild count.
func (c *Commander) statusLoop(ctx context.Context) {
	interval := c.config.Discord.StatusInterval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := fmt.Sprintf(
				"on %d guilds",
				c.discord.session.StateGuildCount(),
			)
			if err := c.discord.session.UpdateCustomStatus(status); err != nil {
				c.logger.Warn("error updating custom status", tint.Err(err))
			}
		}
	}
}

func (c *Commander) status() statusResponse {
	resp := statusResponse{
		Version:          Version,
		CommitSHA:        CommitSHA,
		BuildTime:        BuildTime,
		Uptime:           time.Since(c.startedAt).Round(time.Second).String(),
		GatewayConnected: c.discord.connected.Load(),
		GuildCount:       c.discord.session.StateGuildCount(),
		CommandsServed:   map[string]int64{},
	}
	if c.dispatcher != nil {
		resp.ProcessingGuilds = c.dispatcher.ProcessingGuilds()
		resp.CommandsServed = c.dispatcher.ServedCounts()
	}
	return resp
}

func (c *Commander) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.logger.Info(
		"discord ready",
		"username", r.User.Username,
		"guilds", len(r.Guilds),
	)
}

func (c *Commander) handleConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	c.discord.connected.Store(true)
	c.logger.Info("discord gateway connected")
}

func (c *Commander) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	c.discord.connected.Store(false)
	c.logger.Warn("discord gateway disconnected")
}

func (c *Commander) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	c.logger.Info(
		"guild available",
		"guild_id", g.ID,
		"guild_name", g.Name,
		"member_count", g.MemberCount,
	)
}

func (c *Commander) handleGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	c.logger.Info("guild removed", "guild_id", g.ID)
	if c.dispatcher != nil {
		c.dispatcher.dropGuild(g.ID)
	}
}

// handleInteractionCreate is the gateway callback for slash commands.
// discordgo invokes handlers on its own goroutines, so the dispatcher is
// called directly; per-guild serialization happens in the guard.
func (c *Commander) handleInteractionCreate(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	logger := c.logger.With(interactionLogAttrs(*i)...)
	logger.Debug("interaction received")
	c.dispatcher.HandleInteraction(c.eventCtx, c.discord.session, i)
}
