package commander

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store used across the package's tests. Values
// are kept JSON-encoded, the way the real store sees them. Watch
// registers the handler and delivers events pushed via emit.
type memStore struct {
	mu       sync.Mutex
	data     map[string]json.RawMessage
	watchers map[string][]ChildEventHandler

	setPaths    []string
	deletePaths []string
}

func newMemStore() *memStore {
	return &memStore{
		data:     map[string]json.RawMessage{},
		watchers: map[string][]ChildEventHandler{},
	}
}

func (m *memStore) Get(_ context.Context, path string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, path)
	}
	return json.Unmarshal(raw, v)
}

func (m *memStore) Set(_ context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = raw
	m.setPaths = append(m.setPaths, path)
	return nil
}

func (m *memStore) Update(_ context.Context, path string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		m.data[refPath(path, key)] = raw
		m.setPaths = append(m.setPaths, refPath(path, key))
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	m.deletePaths = append(m.deletePaths, path)
	return nil
}

func (m *memStore) QueryByKeyRange(
	_ context.Context,
	path string,
	start string,
	end string,
) ([]KeyValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := path + "/"
	var results []KeyValue
	for dataPath, raw := range m.data {
		if !strings.HasPrefix(dataPath, prefix) {
			continue
		}
		key := strings.TrimPrefix(dataPath, prefix)
		if strings.Contains(key, "/") || key < start || key > end {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		results = append(results, KeyValue{Key: key, Value: value})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results, nil
}

func (m *memStore) Watch(
	ctx context.Context,
	path string,
	handler ChildEventHandler,
) error {
	m.mu.Lock()
	m.watchers[path] = append(m.watchers[path], handler)
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

// emit delivers a child event to every watcher of the given path.
func (m *memStore) emit(path string, event ChildEvent) {
	m.mu.Lock()
	handlers := append([]ChildEventHandler{}, m.watchers[path]...)
	m.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

func (m *memStore) writes() (sets []string, deletes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.setPaths...),
		append([]string{}, m.deletePaths...)
}

func TestRefPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "settings/123", refPath(pathSettings, "123"))
	assert.Equal(
		t,
		"records/123/20240301",
		refPath(pathRecords, "123", "20240301"),
	)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	var v string
	err := store.Get(context.Background(), "names/1", &v)
	require.Error(t, err)
	assert.True(t, isNotFound(err))
	assert.False(t, isNotFound(context.Canceled))
}

func TestChildEventTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "child_added", ChildAdded.String())
	assert.Equal(t, "child_changed", ChildChanged.String())
	assert.Equal(t, "child_removed", ChildRemoved.String())
}

func TestMemStoreQueryByKeyRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Set(ctx, "records/g/20240101", "a b"))
	require.NoError(t, store.Set(ctx, "records/g/20240105", "b"))
	require.NoError(t, store.Set(ctx, "records/g/20240301", "c"))
	require.NoError(t, store.Set(ctx, "records/other/20240102", "x"))

	results, err := store.QueryByKeyRange(
		ctx,
		"records/g",
		"20240101",
		"20240131",
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "20240101", results[0].Key)
	assert.Equal(t, "a b", results[0].Value)
	assert.Equal(t, "20240105", results[1].Key)
}
