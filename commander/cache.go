package commander

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// GuildSettings holds a guild's stored preferences. Absent fields mean
// "use the default" (everyone / the invoker's current voice channel).
type GuildSettings struct {
	// Locale is the guild's preferred response language tag
	Locale string `json:"locale,omitempty"`

	// Channels is a space-joined list of tracked voice channel IDs
	Channels string `json:"channels,omitempty"`

	// Roles is a space-joined list of role IDs eligible for attendance
	Roles string `json:"roles,omitempty"`

	// Admin is a role ID whose members may use admin-only commands
	Admin string `json:"admin,omitempty"`

	// Prefix is retained for guilds configured before slash commands
	Prefix string `json:"prefix,omitempty"`
}

// ChannelIDs returns the configured tracked channel IDs, split.
func (s GuildSettings) ChannelIDs() []string {
	return splitIDs(s.Channels)
}

// RoleIDs returns the configured eligible role IDs, split.
func (s GuildSettings) RoleIDs() []string {
	return splitIDs(s.Roles)
}

// GuildCache is the process-wide in-memory mirror of a subset of the
// remote store, plus transient per-user abuse counters and per-guild
// warm-up stamps.
//
// It's a read-through, write-around cache: command handlers write to the
// store first and then update the cache, and the store's change feed
// updates it concurrently for synced collections (the ban list). All
// methods are safe for concurrent use.
type GuildCache struct {
	mu sync.RWMutex

	settings map[string]GuildSettings
	names    map[string]string
	banned   map[string]bool
	hints    map[string]string

	warmedAt map[string]time.Time

	syntaxErrors     map[string]int
	permissionErrors map[string]int
}

func NewGuildCache() *GuildCache {
	return &GuildCache{
		settings:         map[string]GuildSettings{},
		names:            map[string]string{},
		banned:           map[string]bool{},
		hints:            map[string]string{},
		warmedAt:         map[string]time.Time{},
		syntaxErrors:     map[string]int{},
		permissionErrors: map[string]int{},
	}
}

func (c *GuildCache) Settings(guildID string) GuildSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings[guildID]
}

func (c *GuildCache) SetSettings(guildID string, settings GuildSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings[guildID] = settings
}

// Name returns the stored display-name override for a user, if any.
func (c *GuildCache) Name(userID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[userID]
	return name, ok
}

func (c *GuildCache) SetName(userID string, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[userID] = name
}

// Banned reports whether the given user or guild ID is banned.
func (c *GuildCache) Banned(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.banned[id]
}

func (c *GuildCache) SetBanned(id string, banned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if banned {
		c.banned[id] = true
	} else {
		delete(c.banned, id)
	}
}

func (c *GuildCache) Hint(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hint, ok := c.hints[key]
	return hint, ok
}

// Hints returns a copy of all loaded hints.
func (c *GuildCache) Hints() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hints := make(map[string]string, len(c.hints))
	for k, v := range c.hints {
		hints[k] = v
	}
	return hints
}

func (c *GuildCache) SetHints(hints map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hints = hints
}

// WarmedAt returns the last time the guild's roster was refreshed.
func (c *GuildCache) WarmedAt(guildID string) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warmedAt[guildID]
}

func (c *GuildCache) SetWarmedAt(guildID string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warmedAt[guildID] = t
}

// IncrSyntaxErrors increments and returns a user's consecutive syntax
// error count.
func (c *GuildCache) IncrSyntaxErrors(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syntaxErrors[userID]++
	return c.syntaxErrors[userID]
}

func (c *GuildCache) ResetSyntaxErrors(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.syntaxErrors, userID)
}

// IncrPermissionErrors increments and returns a user's permission error
// count.
func (c *GuildCache) IncrPermissionErrors(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissionErrors[userID]++
	return c.permissionErrors[userID]
}

// applyChildEvent applies a change-feed event to the named collection.
// Events for collections the cache doesn't mirror are dropped silently.
func (c *GuildCache) applyChildEvent(
	collection string,
	event ChildEvent,
	logger *slog.Logger,
) {
	switch collection {
	case pathBanned:
		if event.Type == ChildRemoved {
			c.SetBanned(event.Key, false)
			return
		}
		c.SetBanned(event.Key, truthy(event.Value))
	case pathNames:
		if event.Type == ChildRemoved {
			c.mu.Lock()
			delete(c.names, event.Key)
			c.mu.Unlock()
			return
		}
		var name string
		if err := json.Unmarshal(event.Value, &name); err != nil {
			logger.Warn(
				"dropping malformed name event",
				"key", event.Key,
				tint.Err(err),
			)
			return
		}
		c.SetName(event.Key, name)
	case pathSettings:
		if event.Type == ChildRemoved {
			c.mu.Lock()
			delete(c.settings, event.Key)
			c.mu.Unlock()
			return
		}
		var settings GuildSettings
		if err := json.Unmarshal(event.Value, &settings); err != nil {
			logger.Warn(
				"dropping malformed settings event",
				"key", event.Key,
				tint.Err(err),
			)
			return
		}
		c.SetSettings(event.Key, settings)
	default:
		// collections the cache doesn't mirror are a no-op
		logger.Debug(
			"ignoring event for unsynced collection",
			"collection", collection,
			"key", event.Key,
		)
	}
}

// SyncCollection registers a live change-feed subscription for one
// top-level store collection and applies its events to the cache until
// ctx is canceled. It's intended to run as a goroutine for the process
// lifetime.
func (c *GuildCache) SyncCollection(
	ctx context.Context,
	store Store,
	collection string,
	logger *slog.Logger,
) {
	err := store.Watch(
		ctx, collection, func(event ChildEvent) {
			c.applyChildEvent(collection, event, logger)
		},
	)
	if err != nil && ctx.Err() == nil {
		logger.Error(
			"collection sync stopped",
			"collection", collection,
			tint.Err(err),
		)
	}
}

// truthy reports whether a raw store value counts as "set" for the ban
// list (any non-null, non-false, non-zero, non-empty value).
func truthy(raw json.RawMessage) bool {
	if isJSONNull(raw) {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		return value != ""
	default:
		return true
	}
}
