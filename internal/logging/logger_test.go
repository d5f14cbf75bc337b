package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefault подменяет глобальный логгер консольным в буфер
func captureDefault(t *testing.T, console LogLevel) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	l := NewConsoleLogger("test", buf)
	l.SetLevels(console, TRACE)

	prev := current()
	SetDefaultLogger(l)
	t.Cleanup(func() {
		SetDefaultLogger(prev)
		ResetComponentLevels()
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel(" debug "))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("громко"), "Неизвестный уровень даёт INFO")
	assert.Equal(t, "ERROR", ERROR.String())
}

func TestComponent_WritesThroughDefaultLogger(t *testing.T) {
	buf := captureDefault(t, INFO)

	world := Component(ComponentWorld)
	assert.Same(t, world, Component(ComponentWorld), "Логгер компонента создаётся один раз")
	assert.Contains(t, Components(), ComponentWorld)

	world.Debug("скрыто")
	world.Info("карта готова")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "карта готова")
	assert.Contains(t, out, "component=world")
}

func TestComponent_LevelOverride(t *testing.T) {
	buf := captureDefault(t, INFO)

	require.NoError(t, SetComponentLevels(map[string]string{ComponentNpc: "debug", ComponentLogin: "error"}))

	Component(ComponentNpc).Debug("NPC шагнул")
	Component(ComponentLogin).Warn("неверный пароль")
	Component(ComponentGame).Debug("автосохранение")

	out := buf.String()
	assert.Contains(t, out, "NPC шагнул", "Порог компонента ниже общего")
	assert.NotContains(t, out, "неверный пароль", "Порог компонента выше общего")
	assert.NotContains(t, out, "автосохранение", "Без переопределения действует общий порог")

	assert.Error(t, SetComponentLevels(map[string]string{"": "debug"}))
}
