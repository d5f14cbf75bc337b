package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileGivesDefaults(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data/npcs", cfg.World.NpcsPath)
	assert.Equal(t, "memory", cfg.Storage.Positions)
	assert.Equal(t, uint8(7), cfg.World.Generator.Floor)
	assert.Equal(t, 50*time.Millisecond, cfg.World.FlushInterval())
	assert.Equal(t, 24*time.Hour, cfg.Login.SessionTTL())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `
server:
  rest_port: 9000
  log_levels: {npc: debug, world: warn}
world:
  flush_interval_ms: 20
  generator: {width: 32, height: 16, seed: 3}
  npcs:
    - {name: Alice, x: 10, y: 11, z: 7}
login:
  motd: "Добро пожаловать"
  free_premium: true
  session_ttl_minutes: 30
storage:
  positions: badger
eventbus:
  url: nats://localhost:4222
  compress: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.Equal(t, map[string]string{"npc": "debug", "world": "warn"}, cfg.Server.LogLevels)
	assert.Equal(t, 20*time.Millisecond, cfg.World.FlushInterval())
	assert.Equal(t, 32, cfg.World.Generator.Width)
	require.Len(t, cfg.World.Npcs, 1)
	assert.Equal(t, uint16(11), cfg.World.Npcs[0].Y)
	assert.True(t, cfg.Login.FreePremium)
	assert.Equal(t, 30*time.Minute, cfg.Login.SessionTTL())
	assert.Equal(t, "badger", cfg.Storage.Positions)
	assert.Equal(t, "TILES", cfg.EventBus.Stream, "Поток по умолчанию")
	assert.True(t, cfg.EventBus.Compress)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("GAME_REST_PORT", "8181")
	t.Setenv("GAME_METRICS_PORT", "abc")
	t.Setenv("GAME_REDIS_ADDR", "redis:6379")
	t.Setenv("GAME_JWT_SECRET", "s3cret")

	cfg := Default()
	assert.Equal(t, 8181, cfg.Server.GetRESTPort())
	assert.Equal(t, 2112, cfg.Server.GetMetricsPort(), "Некорректное значение игнорируется")
	assert.Equal(t, "redis:6379", cfg.Storage.GetRedisAddr())
	assert.Equal(t, "s3cret", cfg.Login.GetJWTSecret())

	cfg.Server.RESTPort = 7000
	assert.Equal(t, 7000, cfg.Server.GetRESTPort(), "Значение из файла важнее окружения")
}
