package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/Elantris/commander/commander"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = commander.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "commander [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch level {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("log_level", commander.DefaultLogLevel.String())
	viper.SetDefault("startup_timeout", commander.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", commander.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.log_channel_id", "")
	viper.SetDefault("discord.status_interval", commander.DefaultStatusInterval)
	viper.SetDefault(
		"discord.log_level",
		commander.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		commander.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		commander.DefaultDiscordGatewayIntent,
	)

	// Firebase config
	viper.SetDefault("firebase.credentials_file", "")
	viper.SetDefault("firebase.database_url", "")
	viper.SetDefault(
		"firebase.log_level",
		commander.DefaultStoreLogLevel.String(),
	)
	viper.SetDefault("firebase.watch_backoff", commander.DefaultWatchBackoff)

	// Dispatch config
	viper.SetDefault("dispatch.global_cooldown", commander.DefaultGlobalCooldown)
	viper.SetDefault("dispatch.warm_up_interval", commander.DefaultWarmUpInterval)
	viper.SetDefault(
		"dispatch.syntax_error_limit",
		commander.DefaultSyntaxErrorLimit,
	)
	viper.SetDefault(
		"dispatch.permission_error_limit",
		commander.DefaultPermissionErrorLimit,
	)
	viper.SetDefault(
		"dispatch.events_per_second",
		commander.DefaultDispatchEventsPerSecond,
	)

	// API config
	viper.SetDefault("api.listen", commander.DefaultAPIListen)
	viper.SetDefault("api.listen_network", commander.DefaultListenNetwork)
	viper.SetDefault("api.log_level", commander.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", commander.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		commander.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", commander.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", commander.DefaultIdleTimeout)
	viper.SetDefault(
		"api.cors.allow_headers",
		commander.DefaultCORSAllowHeaders,
	)
	viper.SetDefault(
		"api.cors.allow_methods",
		commander.DefaultCORSAllowMethods,
	)
	viper.SetDefault("api.cors.allow_origins", []string{})
	viper.SetDefault("api.cors.max_age", commander.DefaultCORSMaxAge)

	envPrefix := os.Getenv(commander.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = commander.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// Convert values to correct types
	viper.Set(
		"api.cors.allow_headers",
		viper.GetStringSlice("api.cors.allow_headers"),
	)
	viper.Set(
		"api.cors.allow_origins",
		viper.GetStringSlice("api.cors.allow_origins"),
	)
	viper.Set(
		"api.cors.allow_methods",
		viper.GetStringSlice("api.cors.allow_methods"),
	)

	for _, key := range []string{
		"log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"firebase.log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Env file to use",
	)
}
