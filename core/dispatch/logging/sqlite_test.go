package logging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:history.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Now()
	kinds := []string{"position", "velocity", "position", "acceleration"}
	for i, k := range kinds {
		rec := LogRecord{
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Kind:        k,
			Topic:       "mavros/setpoint/x",
			Setpoint:    json.RawMessage(`{"vector":{"x":0,"y":0,"z":9.8}}`),
			Published:   true,
			ModeEnabled: i%2 == 0,
		}
		require.NoError(t, store.Append(ctx, rec))
	}

	out, err := store.Query(ctx, LogQuery{Kind: "position"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Timestamp.Before(out[1].Timestamp))

	out, err = store.Query(ctx, LogQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "position", out[0].Kind)
	assert.Equal(t, "acceleration", out[1].Kind)
	assert.JSONEq(t, `{"vector":{"x":0,"y":0,"z":9.8}}`, string(out[1].Setpoint))
}

func TestJSONLStore_QueryLimit(t *testing.T) {
	store, err := NewJSONLStore(t.TempDir() + "/history.jsonl")
	require.NoError(t, err)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, LogRecord{Timestamp: base.Add(time.Duration(i) * time.Minute), Warnings: i}))
	}
	out, err := store.Query(ctx, LogQuery{Limit: 3})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 2, out[0].Warnings)
	assert.Equal(t, 4, out[2].Warnings)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(Config{Backend: "none"})
	assert.NoError(t, err)
	assert.Nil(t, s)

	cfg := Config{Backend: "jsonl", Path: t.TempDir() + "/h.jsonl", MaxSizeMB: 1}
	require.NoError(t, cfg.Validate())
	s, err = NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	_ = s.Close()

	_, err = NewStore(Config{Backend: "redis"})
	assert.Error(t, err)
	assert.Error(t, Config{Backend: "redis"}.Validate())

	var c Config
	c.SetDefaults()
	assert.Equal(t, "none", c.Backend)
}
