package commander

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	t.Parallel()

	_, ok := ContextLogger(context.Background())
	assert.False(t, ok)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), logger)
	got, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Same(t, logger, got)

	// a nil logger falls back to the default
	got, ok = ContextLogger(WithLogger(context.Background(), nil))
	require.True(t, ok)
	assert.Same(t, slog.Default(), got)
}

func TestDiscordgoLoggerFunc(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logFn := discordgoLoggerFunc(
		context.Background(),
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	logFn(discordgo.LogWarning, 0, "gateway %s\n", "reconnect")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "gateway reconnect")

	buf.Reset()
	logFn(discordgo.LogDebug, 0, "heartbeat")
	assert.Contains(t, buf.String(), "level=DEBUG")

	// unknown discordgo levels log at info
	buf.Reset()
	logFn(999, 0, "odd")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestNewSessionBridgesDiscordgoLogger(t *testing.T) {
	discordgo.Logger = nil

	lvl := &slog.LevelVar{}
	d := newDiscord(&DiscordConfig{Token: "token", DiscordGoLogLevel: lvl})
	d.logger = slog.Default()

	_, err := d.newSession()
	require.NoError(t, err)
	assert.NotNil(t, discordgo.Logger)
}

func TestStructToSlogValueRedaction(t *testing.T) {
	t.Parallel()

	config := &DiscordConfig{
		Token:         "secret-token",
		ApplicationID: "app-1",
	}
	rendered := structToSlogValue(config).String()
	assert.NotContains(t, rendered, "secret-token")
	assert.Contains(t, rendered, "[redacted]")
	assert.Contains(t, rendered, "app-1")
}
