package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	config, err := Parse([]byte(`
address: ":8080"
logLevel: debug
store:
  engine: bolt
  path: /var/lib/graph.db
sync:
  workers: 4
  discoveryCacheTTL: 5m
query:
  cacheTTL: 10s
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Address)
	assert.Equal(t, "bolt", config.Store.Engine)
	assert.Equal(t, "/var/lib/graph.db", config.Store.Path)
	assert.Equal(t, 4, config.Sync.Workers)
	assert.Equal(t, 5*time.Minute, config.Sync.DiscoveryCacheTTL)
	assert.Equal(t, 10*time.Second, config.Query.CacheTTL)
	assert.Equal(t, time.Minute, config.Query.CacheCleanupInterval, "unset fields keep their default")

	level, err := config.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		expectErr bool
	}{
		{"empty file", "", false},
		{"unknown engine", "store: {engine: rocksdb}", true},
		{"bolt without path", "store: {engine: bolt}", true},
		{"no workers", "sync: {workers: 0}", true},
		{"bad level", "logLevel: loud", true},
		{"negative ttl", "query: {cacheTTL: -1s}", true},
		{"not yaml", "address: [", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.content))
			if test.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), config)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("logLevel: debug\n"), 0o600); err != nil {
			return false
		}
		select {
		case c := <-changes:
			return c.LogLevel == "debug"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
