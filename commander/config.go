//nolint:lll // struct tags can't be split
package commander

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
)

const (
	EnvvarSetEnvPrefix = "COMMANDER_ENV_PREFIX"
	DefaultEnvPrefix   = "COMMANDER"

	DefaultLogLevel          = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelInfo
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultStoreLogLevel     = slog.LevelInfo
	DefaultAPILogLevel       = slog.LevelInfo

	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 60 * time.Second

	DefaultStatusInterval = time.Minute

	// DefaultWatchBackoff is the initial reconnect delay for the store's
	// change-feed stream. The delay doubles on each consecutive failure,
	// capped at watchBackoffMax.
	DefaultWatchBackoff = time.Second

	// DefaultGlobalCooldown is the minimum interval between any two completed
	// commands within one guild, regardless of which commands they are.
	DefaultGlobalCooldown = 3 * time.Second

	// DefaultWarmUpInterval is the maximum age of a guild's cached roster
	// before roles and members are re-fetched from Discord.
	DefaultWarmUpInterval = time.Hour

	DefaultSyntaxErrorLimit        = 16
	DefaultPermissionErrorLimit    = 4
	DefaultDispatchEventsPerSecond = 10

	DefaultReadTimeout         = 5 * time.Second
	DefaultReadHeaderTimeout   = 5 * time.Second
	DefaultWriteTimeout        = 10 * time.Second
	DefaultIdleTimeout         = 30 * time.Second
	DefaultAPIListen           = "127.0.0.1:5000"
	DefaultListenNetwork       = "tcp"
	DefaultCORSMaxAge          = 12 * time.Hour
	DefaultDiscordGatewayIntent = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates
)

var (
	DefaultCORSAllowMethods = []string{
		http.MethodGet,
		http.MethodOptions,
		http.MethodHead,
	}
	DefaultCORSAllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Accept",
		"Cache-Control",
	}
)

// Config is the top-level configuration for the bot. Values are loaded once
// at process start (see cmd/root.go) and are not modified afterward.
type Config struct {
	// Discord configures the bot's gateway session
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// Firebase configures the remote store client
	Firebase *FirebaseConfig `yaml:"firebase" mapstructure:"firebase" json:"firebase"`

	// Dispatch configures per-guild serialization, cooldowns and abuse limits
	Dispatch *DispatchConfig `yaml:"dispatch" mapstructure:"dispatch" json:"dispatch"`

	// API configures the status HTTP server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// LogChannelID is the channel every command outcome is mirrored to
	LogChannelID string `yaml:"log_channel_id" mapstructure:"log_channel_id" json:"log_channel_id" binding:"required"`

	// StatusInterval is how often the bot's custom status ("on N guilds")
	// is refreshed
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval" json:"status_interval"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	httpClient *http.Client
}

// FirebaseConfig configures the Firebase Realtime Database client.
//
//nolint:lll // can't break tags
type FirebaseConfig struct {
	// Path to a service account credentials JSON file
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file" json:"credentials_file" log:"[redacted]" binding:"required"`

	// Realtime Database URL (https://<project>.firebaseio.com)
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" json:"database_url" binding:"required,url"`

	// Initial reconnect delay for change-feed streams
	WatchBackoff time.Duration `yaml:"watch_backoff" mapstructure:"watch_backoff" json:"watch_backoff"`

	// Store client log level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// DispatchConfig configures the per-guild concurrency guard and abuse limits.
//
//nolint:lll // can't break tags
type DispatchConfig struct {
	// Minimum interval between completed commands within one guild
	GlobalCooldown time.Duration `yaml:"global_cooldown" mapstructure:"global_cooldown" json:"global_cooldown" binding:"min=0"`

	// Maximum age of a guild's cached roster before it's re-fetched
	WarmUpInterval time.Duration `yaml:"warm_up_interval" mapstructure:"warm_up_interval" json:"warm_up_interval" binding:"min=0"`

	// Number of syntax errors after which a user is banned
	SyntaxErrorLimit int `yaml:"syntax_error_limit" mapstructure:"syntax_error_limit" json:"syntax_error_limit" binding:"min=1"`

	// Number of permission errors after which a user is banned
	PermissionErrorLimit int `yaml:"permission_error_limit" mapstructure:"permission_error_limit" json:"permission_error_limit" binding:"min=1"`

	// Process-wide limit on handled interactions per second, across all guilds
	EventsPerSecond int `yaml:"events_per_second" mapstructure:"events_per_second" json:"events_per_second" binding:"min=1"`
}

// APIConfig configures the status HTTP server.
//
//nolint:lll // can't break tags
type APIConfig struct {
	// The address and port on which the server should listen (e.g., "127.0.0.1:5000").
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required,hostname|filepath"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix").
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required,oneof=tcp tcp4 tcp6 unix"`

	// The logging level for the API server.
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Cross-origin configuration
	CORS CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`

	// Maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" binding:"min=1s"`

	// Amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout" binding:"min=1s"`

	// Maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" binding:"min=1s"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" binding:"min=1s"`
}

// CORSConfig specifies cross-origin resource sharing settings
type CORSConfig struct {
	AllowOrigins []string      `yaml:"allow_origins" mapstructure:"allow_origins" json:"allow_origins"`
	AllowMethods []string      `yaml:"allow_methods" mapstructure:"allow_methods" json:"allow_methods"`
	AllowHeaders []string      `yaml:"allow_headers" mapstructure:"allow_headers" json:"allow_headers"`
	MaxAge       time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
}

func (c CORSConfig) GINConfig() cors.Config {
	return cors.Config{
		AllowOrigins: c.AllowOrigins,
		AllowMethods: c.AllowMethods,
		AllowHeaders: c.AllowHeaders,
		MaxAge:       c.MaxAge,
	}
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	storeLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	storeLogLevel.Set(DefaultStoreLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		LogLevel:        mainLogLevel,
		StartupTimeout:  DefaultStartupTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			StatusInterval:    DefaultStatusInterval,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
		},
		Firebase: &FirebaseConfig{
			WatchBackoff: DefaultWatchBackoff,
			LogLevel:     storeLogLevel,
		},
		Dispatch: &DispatchConfig{
			GlobalCooldown:       DefaultGlobalCooldown,
			WarmUpInterval:       DefaultWarmUpInterval,
			SyntaxErrorLimit:     DefaultSyntaxErrorLimit,
			PermissionErrorLimit: DefaultPermissionErrorLimit,
			EventsPerSecond:      DefaultDispatchEventsPerSecond,
		},
		API: &APIConfig{
			Listen:            DefaultAPIListen,
			ListenNetwork:     DefaultListenNetwork,
			LogLevel:          apiLogLevel,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ReadTimeout:       DefaultReadTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			CORS: CORSConfig{
				AllowOrigins: []string{},
				AllowMethods: DefaultCORSAllowMethods,
				AllowHeaders: DefaultCORSAllowHeaders,
				MaxAge:       DefaultCORSMaxAge,
			},
		},
	}
}
