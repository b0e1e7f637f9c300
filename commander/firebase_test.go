package commander

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestWatcher(t *testing.T) (*sseWatcher, *[]ChildEvent) {
	t.Helper()
	events := &[]ChildEvent{}
	watcher := &sseWatcher{
		path: pathBanned,
		handler: func(event ChildEvent) {
			*events = append(*events, event)
		},
		known:  map[string]json.RawMessage{},
		logger: slog.Default(),
	}
	return watcher, events
}

func TestSSEWatcherInitialSnapshot(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	err := watcher.handleEvent(
		sseEventPut,
		`{"path":"/","data":{"user-1":true,"user-2":true}}`,
	)
	require.NoError(t, err)

	require.Len(t, *events, 2)
	keys := map[string]ChildEventType{}
	for _, event := range *events {
		keys[event.Key] = event.Type
	}
	assert.Equal(t, ChildAdded, keys["user-1"])
	assert.Equal(t, ChildAdded, keys["user-2"])
}

func TestSSEWatcherChildPut(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/user-1","data":true}`),
	)
	require.Len(t, *events, 1)
	assert.Equal(t, ChildAdded, (*events)[0].Type)
	assert.Equal(t, "user-1", (*events)[0].Key)

	// a second put to the same child is a change
	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/user-1","data":false}`),
	)
	require.Len(t, *events, 2)
	assert.Equal(t, ChildChanged, (*events)[1].Type)
}

func TestSSEWatcherChildRemoval(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/user-1","data":true}`),
	)
	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/user-1","data":null}`),
	)

	require.Len(t, *events, 2)
	assert.Equal(t, ChildRemoved, (*events)[1].Type)
	assert.Equal(t, "user-1", (*events)[1].Key)

	// removing an unknown child emits nothing
	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/user-9","data":null}`),
	)
	assert.Len(t, *events, 2)
}

func TestSSEWatcherRootPutRemovesAbsentChildren(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	require.NoError(
		t,
		watcher.handleEvent(
			sseEventPut,
			`{"path":"/","data":{"user-1":true,"user-2":true}}`,
		),
	)
	*events = nil

	require.NoError(
		t,
		watcher.handleEvent(sseEventPut, `{"path":"/","data":{"user-2":true}}`),
	)

	var removed []string
	for _, event := range *events {
		if event.Type == ChildRemoved {
			removed = append(removed, event.Key)
		}
	}
	assert.Equal(t, []string{"user-1"}, removed)
}

func TestSSEWatcherRootPatchOnlyMerges(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	require.NoError(
		t,
		watcher.handleEvent(
			sseEventPut,
			`{"path":"/","data":{"user-1":true,"user-2":true}}`,
		),
	)
	*events = nil

	require.NoError(
		t,
		watcher.handleEvent(
			sseEventPatch,
			`{"path":"/","data":{"user-3":true}}`,
		),
	)

	require.Len(t, *events, 1)
	assert.Equal(t, ChildAdded, (*events)[0].Type)
	assert.Equal(t, "user-3", (*events)[0].Key)
}

func TestSSEWatcherControlEvents(t *testing.T) {
	t.Parallel()

	watcher, events := newTestWatcher(t)

	require.NoError(t, watcher.handleEvent(sseEventKeepAlive, "null"))
	assert.Empty(t, *events)

	err := watcher.handleEvent(sseEventCancel, "null")
	assert.ErrorIs(t, err, errStreamCanceled)

	assert.Error(t, watcher.handleEvent(sseEventRevoked, "null"))

	// unknown events are ignored
	require.NoError(t, watcher.handleEvent("bogus", "null"))
	assert.Empty(t, *events)
}

func TestIsJSONNull(t *testing.T) {
	t.Parallel()

	assert.True(t, isJSONNull(nil))
	assert.True(t, isJSONNull(json.RawMessage("null")))
	assert.False(t, isJSONNull(json.RawMessage("false")))
	assert.False(t, isJSONNull(json.RawMessage(`""`)))
}

func newStreamTestStore(t *testing.T, handler http.HandlerFunc) *firebaseStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &firebaseStore{
		config:      &FirebaseConfig{DatabaseURL: srv.URL},
		logger:      slog.Default(),
		tokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
		httpClient:  srv.Client(),
	}
}

func TestStreamReportsConnection(t *testing.T) {
	t.Parallel()

	// an accepted stream that later drops still counts as connected, so
	// the reconnect delay starts over instead of staying at its cap
	store := newStreamTestStore(
		t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(
				w,
				"event: put\ndata: {\"path\":\"/\",\"data\":{\"u1\":true}}\n\n",
			)
		},
	)
	watcher, events := newTestWatcher(t)

	connected, err := store.stream(context.Background(), watcher)
	assert.True(t, connected)
	assert.Error(t, err)

	require.Len(t, *events, 1)
	assert.Equal(t, ChildAdded, (*events)[0].Type)
	assert.Equal(t, "u1", (*events)[0].Key)
}

func TestStreamRejectedNotConnected(t *testing.T) {
	t.Parallel()

	store := newStreamTestStore(
		t,
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		},
	)
	watcher, events := newTestWatcher(t)

	connected, err := store.stream(context.Background(), watcher)
	assert.False(t, connected)
	assert.Error(t, err)
	assert.Empty(t, *events)
}
