package commander

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Store paths, relative to the database root. Path segments are joined
// with refPath.
const (
	pathSettings = "settings"
	pathRecords  = "records"
	pathNames    = "names"
	pathBanned   = "banned"
	pathHints    = "hints"
)

var ErrStoreNotFound = errors.New("value not found")

// isNotFound reports whether err is a store miss.
func isNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound)
}

// ChildEventType identifies a change to one child key below a watched path.
type ChildEventType int

const (
	ChildAdded ChildEventType = iota
	ChildChanged
	ChildRemoved
)

func (t ChildEventType) String() string {
	switch t {
	case ChildAdded:
		return "child_added"
	case ChildChanged:
		return "child_changed"
	case ChildRemoved:
		return "child_removed"
	default:
		return fmt.Sprintf("unknown (%d)", int(t))
	}
}

// ChildEvent is a single change delivered by [Store.Watch]. Key is the
// immediate child key below the watched path. Value is the child's new
// value (nil for ChildRemoved).
type ChildEvent struct {
	Type  ChildEventType
	Key   string
	Value json.RawMessage
}

// ChildEventHandler receives change-feed events for a watched path.
type ChildEventHandler func(event ChildEvent)

// Store is the path-addressed remote document store the bot persists to.
// The production implementation is the Firebase Realtime Database (see
// firebaseStore); tests use an in-memory implementation.
type Store interface {
	// Get unmarshals the value at path into v. Returns ErrStoreNotFound
	// when nothing exists at path.
	Get(ctx context.Context, path string, v any) error

	// Set overwrites the value at path in full.
	Set(ctx context.Context, path string, v any) error

	// Update applies a partial update of child keys below path.
	Update(ctx context.Context, path string, values map[string]any) error

	// Delete removes the value at path.
	Delete(ctx context.Context, path string) error

	// QueryByKeyRange returns the string-valued children of path whose keys
	// fall within [start, end], in ascending key order.
	QueryByKeyRange(ctx context.Context, path string, start string, end string) (
		[]KeyValue,
		error,
	)

	// Watch streams child added/changed/removed events below path to the
	// given handler until ctx is canceled. Existing children are delivered
	// as ChildAdded when the stream opens.
	Watch(ctx context.Context, path string, handler ChildEventHandler) error
}

// KeyValue is one child returned by an ordered range query.
type KeyValue struct {
	Key   string
	Value string
}

// refPath joins path segments into a store path ("records/guild/20210301")
func refPath(segments ...string) string {
	return strings.Join(segments, "/")
}
