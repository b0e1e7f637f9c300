package commander

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/lmittmann/tint"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	// watchBackoffMax caps the reconnect delay for change-feed streams
	watchBackoffMax = time.Minute

	sseEventPut       = "put"
	sseEventPatch     = "patch"
	sseEventKeepAlive = "keep-alive"
	sseEventCancel    = "cancel"
	sseEventRevoked   = "auth_revoked"
)

// firebaseScopes are the OAuth scopes needed for REST access to the
// Realtime Database (the Admin SDK handles its own scopes for everything
// except the streaming endpoint, which the SDK doesn't support).
var firebaseScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/firebase.database",
}

// firebaseStore implements [Store] on the Firebase Realtime Database.
//
// Point reads/writes and range queries go through the Admin SDK's db
// client. Watch is implemented against the database's REST streaming
// endpoint (Server-Sent Events), since the Go Admin SDK has no listener
// support; see [sseWatcher].
type firebaseStore struct {
	client      *db.Client
	config      *FirebaseConfig
	logger      *slog.Logger
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

func newFirebaseStore(
	ctx context.Context,
	config *FirebaseConfig,
	httpClient *http.Client,
	logger *slog.Logger,
) (*firebaseStore, error) {
	app, err := firebase.NewApp(
		ctx,
		&firebase.Config{DatabaseURL: config.DatabaseURL},
		option.WithCredentialsFile(config.CredentialsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating database client: %w", err)
	}

	credJSON, err := os.ReadFile(config.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, credJSON, firebaseScopes...)
	if err != nil {
		return nil, fmt.Errorf("error parsing credentials: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &firebaseStore{
		client:      client,
		config:      config,
		logger:      logger,
		tokenSource: creds.TokenSource,
		httpClient:  httpClient,
	}, nil
}

func (f *firebaseStore) Get(ctx context.Context, path string, v any) error {
	var raw json.RawMessage
	if err := f.client.NewRef(path).Get(ctx, &raw); err != nil {
		return err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, path)
	}
	return json.Unmarshal(raw, v)
}

func (f *firebaseStore) Set(ctx context.Context, path string, v any) error {
	return f.client.NewRef(path).Set(ctx, v)
}

func (f *firebaseStore) Update(
	ctx context.Context,
	path string,
	values map[string]any,
) error {
	return f.client.NewRef(path).Update(ctx, values)
}

func (f *firebaseStore) Delete(ctx context.Context, path string) error {
	return f.client.NewRef(path).Delete(ctx)
}

func (f *firebaseStore) QueryByKeyRange(
	ctx context.Context,
	path string,
	start string,
	end string,
) ([]KeyValue, error) {
	nodes, err := f.client.NewRef(path).
		OrderByKey().
		StartAt(start).
		EndAt(end).
		GetOrdered(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]KeyValue, 0, len(nodes))
	for _, node := range nodes {
		var value string
		if err := node.Unmarshal(&value); err != nil {
			f.logger.Warn(
				"skipping non-string child",
				"path", path,
				"key", node.Key(),
				tint.Err(err),
			)
			continue
		}
		results = append(results, KeyValue{Key: node.Key(), Value: value})
	}
	return results, nil
}

// Watch opens the REST streaming endpoint for path and delivers child
// events until ctx is canceled, reconnecting with exponential backoff.
// The initial full snapshot is delivered as one ChildAdded per existing
// child, matching the Realtime Database listener contract.
func (f *firebaseStore) Watch(
	ctx context.Context,
	path string,
	handler ChildEventHandler,
) error {
	w := &sseWatcher{
		path:    path,
		handler: handler,
		known:   map[string]json.RawMessage{},
		logger:  f.logger.With("path", path),
	}

	backoff := f.config.WatchBackoff
	if backoff <= 0 {
		backoff = DefaultWatchBackoff
	}
	delay := backoff

	for {
		connected, err := f.stream(ctx, w)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			// a healthy stream resets the reconnect delay
			delay = backoff
		}
		f.logger.Warn(
			"change feed disconnected, reconnecting",
			"path", path,
			"delay", delay,
			tint.Err(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > watchBackoffMax {
			delay = watchBackoffMax
		}
	}
}

// stream makes a single streaming request and feeds events to the watcher
// until the connection drops or ctx is canceled. The returned bool
// reports whether the connection was established, so the caller can
// reset its reconnect delay after a healthy stream.
func (f *firebaseStore) stream(ctx context.Context, w *sseWatcher) (bool, error) {
	token, err := f.tokenSource.Token()
	if err != nil {
		return false, fmt.Errorf("error getting access token: %w", err)
	}

	streamURL, err := url.JoinPath(f.config.DatabaseURL, w.path+".json")
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	token.SetAuthHeader(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream request failed: %s", resp.Status)
	}

	f.logger.Info("change feed connected", "path", w.path)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if err := w.handleEvent(eventName, data); err != nil {
				return true, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, errors.New("stream closed")
}

// sseWatcher translates Realtime Database streaming protocol events
// (put/patch frames with a path and data payload) into child-level
// added/changed/removed events for a single watched location. It keeps
// the set of known child keys so that a full-snapshot put can be diffed
// into individual events.
type sseWatcher struct {
	path    string
	handler ChildEventHandler
	known   map[string]json.RawMessage
	logger  *slog.Logger
}

type ssePayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

var errStreamCanceled = errors.New("stream canceled by server")

func (w *sseWatcher) handleEvent(eventName string, data string) error {
	switch eventName {
	case sseEventKeepAlive:
		return nil
	case sseEventCancel:
		return errStreamCanceled
	case sseEventRevoked:
		// reconnecting fetches a fresh token
		return errors.New("auth token revoked")
	case sseEventPut, sseEventPatch:
		//
	default:
		w.logger.Debug("ignoring unknown stream event", "event", eventName)
		return nil
	}

	var payload ssePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("error decoding stream payload: %w", err)
	}

	if payload.Path == "/" || payload.Path == "" {
		w.applyRoot(eventName, payload.Data)
		return nil
	}

	childKey, _, _ := strings.Cut(
		strings.TrimPrefix(payload.Path, "/"),
		"/",
	)
	if childKey == "" {
		return nil
	}

	// a deep path ("/child/sub") only ever modifies the child; treat a
	// top-level null put as a removal
	deep := strings.Contains(strings.TrimPrefix(payload.Path, "/"), "/")
	if !deep && eventName == sseEventPut && isJSONNull(payload.Data) {
		w.remove(childKey)
		return nil
	}
	w.upsert(childKey, payload.Data)
	return nil
}

// applyRoot diffs a full-snapshot put (or root patch) against the known
// child set, emitting one event per changed child.
func (w *sseWatcher) applyRoot(eventName string, data json.RawMessage) {
	children := map[string]json.RawMessage{}
	if !isJSONNull(data) {
		if err := json.Unmarshal(data, &children); err != nil {
			w.logger.Warn(
				"root payload is not an object, dropping",
				tint.Err(err),
			)
			return
		}
	}

	for key, value := range children {
		w.upsert(key, value)
	}

	// a root put replaces the whole location; anything absent is removed.
	// A root patch only merges, so nothing is removed.
	if eventName == sseEventPut {
		for key := range w.known {
			if _, ok := children[key]; !ok {
				w.remove(key)
			}
		}
	}
}

func (w *sseWatcher) upsert(key string, value json.RawMessage) {
	_, existed := w.known[key]
	w.known[key] = value
	event := ChildEvent{Type: ChildAdded, Key: key, Value: value}
	if existed {
		event.Type = ChildChanged
	}
	w.handler(event)
}

func (w *sseWatcher) remove(key string) {
	if _, ok := w.known[key]; !ok {
		return
	}
	delete(w.known, key)
	w.handler(ChildEvent{Type: ChildRemoved, Key: key})
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
