package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты сервера с собственными логгерами
const (
	ComponentWorld = "world"
	ComponentNpc   = "npc"
	ComponentLogin = "login"
	ComponentGame  = "game"
)

// ComponentLogger пишет через глобальный логгер от имени своего компонента.
// Порог консоли можно переопределить для компонента через SetComponentLevel.
type ComponentLogger struct {
	name string
}

var (
	componentsMu    sync.RWMutex
	components      = make(map[string]*ComponentLogger)
	componentLevels = make(map[string]LogLevel)
)

// Component возвращает логгер компонента, создавая его при первом обращении
func Component(name string) *ComponentLogger {
	componentsMu.RLock()
	c, ok := components[name]
	componentsMu.RUnlock()
	if ok {
		return c
	}

	componentsMu.Lock()
	defer componentsMu.Unlock()
	if c, ok := components[name]; ok {
		return c
	}
	c = &ComponentLogger{name: name}
	components[name] = c
	return c
}

// Components отсортированный список созданных компонентов
func Components() []string {
	componentsMu.RLock()
	defer componentsMu.RUnlock()

	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetComponentLevel задаёт порог консоли для компонента
func SetComponentLevel(name string, level LogLevel) {
	componentsMu.Lock()
	componentLevels[name] = level
	componentsMu.Unlock()
}

// SetComponentLevels применяет пороги из конфигурации (имя компонента -> имя уровня).
// Пустое имя компонента считается ошибкой.
func SetComponentLevels(levels map[string]string) error {
	for name, level := range levels {
		if name == "" {
			return fmt.Errorf("уровень %q задан без имени компонента", level)
		}
		SetComponentLevel(name, ParseLevel(level))
	}
	return nil
}

// ResetComponentLevels убирает все переопределения порогов
func ResetComponentLevels() {
	componentsMu.Lock()
	componentLevels = make(map[string]LogLevel)
	componentsMu.Unlock()
}

// Name имя компонента
func (c *ComponentLogger) Name() string { return c.name }

func (c *ComponentLogger) log(level LogLevel, format string, args ...interface{}) {
	l := current()
	console := l.consoleLevel()

	componentsMu.RLock()
	if override, ok := componentLevels[c.name]; ok {
		console = override
	}
	componentsMu.RUnlock()

	l.write(c.name, level, console, fmt.Sprintf(format, args...))
}

// Trace сообщение уровня TRACE
func (c *ComponentLogger) Trace(format string, args ...interface{}) { c.log(TRACE, format, args...) }

// Debug сообщение уровня DEBUG
func (c *ComponentLogger) Debug(format string, args ...interface{}) { c.log(DEBUG, format, args...) }

// Info сообщение уровня INFO
func (c *ComponentLogger) Info(format string, args ...interface{}) { c.log(INFO, format, args...) }

// Warn сообщение уровня WARN
func (c *ComponentLogger) Warn(format string, args ...interface{}) { c.log(WARN, format, args...) }

// Error сообщение уровня ERROR
func (c *ComponentLogger) Error(format string, args ...interface{}) { c.log(ERROR, format, args...) }
