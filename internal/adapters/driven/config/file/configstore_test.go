package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	store, err := NewConfigStore(path)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, path, store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	dir, err := DefaultDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	store, err := NewConfigStore("")
	if err != nil {
		t.Skipf("existing user config is unreadable: %v", err)
	}

	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_DoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	_, err := NewConfigStore(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	_, err := NewConfigStore(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[embeddings]
store = "sqlite"
batchSize = 16

[chat]
minScore = 0.75
maxResults = 3

[vespa]
avoidDups = false

[rss]
feeds = ["https://a.example/rss", "https://b.example/rss"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", store.GetString("embeddings.store"))
	assert.Equal(t, 16, store.GetInt("embeddings.batchSize"))
	assert.InDelta(t, 0.75, store.GetFloat("chat.minScore"), 1e-9)
	assert.InDelta(t, 3.0, store.GetFloat("chat.maxResults"), 1e-9)
	assert.False(t, store.GetBool("vespa.avoidDups"))
	_, ok := store.Get("vespa.avoidDups")
	assert.True(t, ok)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/rss"}, store.GetStringSlice("rss.feeds"))
}

func TestConfigStore_Getters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("a.string", "hello"))
	require.NoError(t, store.Set("a.int", 42))
	require.NoError(t, store.Set("a.int64", int64(7)))
	require.NoError(t, store.Set("a.float", 0.5))
	require.NoError(t, store.Set("a.bool", true))
	require.NoError(t, store.Set("a.list", []string{"x", "y"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("a.string"), "hello"},
		{"string wrong type", store.GetString("a.int"), ""},
		{"int", store.GetInt("a.int"), 42},
		{"int64", store.GetInt("a.int64"), 7},
		{"int wrong type", store.GetInt("a.string"), 0},
		{"float", store.GetFloat("a.float"), 0.5},
		{"float from int", store.GetFloat("a.int"), 42.0},
		{"float missing", store.GetFloat("a.none"), 0.0},
		{"bool", store.GetBool("a.bool"), true},
		{"bool wrong type", store.GetBool("a.string"), false},
		{"list", store.GetStringSlice("a.list"), []string{"x", "y"}},
		{"list wrong type", store.GetStringSlice("a.string"), []string(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)

	val, ok := store.Get("missing")

	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Set_InvalidKey(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"", "  ", ".a", "a."} {
		assert.Error(t, store.Set(key, "x"), "key %q", key)
	}
}

func TestConfigStore_Set_ConflictingKey(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("vespa.url", "http://localhost:8080"))

	assert.Error(t, store.Set("vespa", "flat"))
	assert.Error(t, store.Set("vespa.url.host", "x"))
}

func TestConfigStore_Set_DoesNotPersist(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("chat.memory", 4))

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestConfigStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	store, err := NewConfigStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Set("vespa.url", "http://vespa:8080"))
	require.NoError(t, store.Set("vespa.targetHits", 10))
	require.NoError(t, store.Set("chat.minScore", 0.4))
	require.NoError(t, store.Set("version", "1"))
	require.NoError(t, store.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[vespa]")
	assert.Contains(t, string(data), "[chat]")

	reloaded, err := NewConfigStore(path)
	require.NoError(t, err)
	assert.Equal(t, "http://vespa:8080", reloaded.GetString("vespa.url"))
	assert.Equal(t, 10, reloaded.GetInt("vespa.targetHits"))
	assert.InDelta(t, 0.4, reloaded.GetFloat("chat.minScore"), 1e-9)
	assert.Equal(t, "1", reloaded.GetString("version"))
	assert.Equal(t, []string{"chat.minScore", "version", "vespa.targetHits", "vespa.url"}, reloaded.Keys())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("key", "value"))
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_DiscardsUnsavedChanges(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("kept", "yes"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Set("dropped", "yes"))

	require.NoError(t, store.Load())

	assert.Equal(t, "yes", store.GetString("kept"))
	_, ok := store.Get("dropped")
	assert.False(t, ok)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	store, err := NewConfigStore(path)

	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter.value", n)
			_ = store.GetInt("counter.value")
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("counter.value")
	assert.True(t, ok)
}

func TestUnflattenMap(t *testing.T) {
	nested := unflattenMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(nested, ""))
}
