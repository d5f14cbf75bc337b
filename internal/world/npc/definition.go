// Package npc управляет неигровыми персонажами: загрузкой описаний, случайной
// ходьбой по клеткам карты и диалогами через ScriptInterface.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultWalkInterval интервал шагов, если в описании не задан
const DefaultWalkInterval = 1500 * time.Millisecond

// Definition описание NPC из YAML
type Definition struct {
	Name string `yaml:"name"`
	// Speed скорость существа (по умолчанию 100)
	Speed uint16 `yaml:"speed"`
	// WalkInterval пауза между шагами; 0 означает стоять на месте
	WalkInterval *time.Duration `yaml:"walk_interval"`
	// WalkRadius радиус от точки появления; -1 без ограничений, 0 не ходит
	WalkRadius  int  `yaml:"walk_radius"`
	FloorChange bool `yaml:"floor_change"`
	// IgnoreHeight разрешает заходить на клетки с высокими предметами
	IgnoreHeight *bool `yaml:"ignore_height"`
	Health       int32 `yaml:"health"`
	MaxHealth    int32 `yaml:"max_health"`

	Greeting string `yaml:"greeting"`
	Farewell string `yaml:"farewell"`
	// Replies ответы на ключевые слова собеседника
	Replies map[string]string `yaml:"replies"`
	// IdleTimeout через сколько NPC забывает молчащего собеседника
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// Parameters произвольные параметры для скриптов
	Parameters map[string]string `yaml:"parameters"`
}

// Walk возвращает интервал шагов с учётом значения по умолчанию
func (d *Definition) Walk() time.Duration {
	if d.WalkInterval == nil {
		return DefaultWalkInterval
	}
	return *d.WalkInterval
}

// IgnoresHeight по умолчанию NPC не обращают внимания на высоту предметов
func (d *Definition) IgnoresHeight() bool {
	return d.IgnoreHeight == nil || *d.IgnoreHeight
}

func (d *Definition) normalize() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return fmt.Errorf("у NPC не задано имя")
	}
	if d.Speed == 0 {
		d.Speed = 100
	}
	if d.Health <= 0 {
		d.Health = 100
	}
	if d.MaxHealth < d.Health {
		d.MaxHealth = d.Health
	}
	if d.WalkRadius < -1 {
		return fmt.Errorf("NPC %s: радиус ходьбы %d", d.Name, d.WalkRadius)
	}
	if d.IdleTimeout <= 0 {
		d.IdleTimeout = time.Minute
	}

	replies := make(map[string]string, len(d.Replies))
	for keyword, text := range d.Replies {
		replies[strings.ToLower(strings.TrimSpace(keyword))] = text
	}
	d.Replies = replies
	return nil
}

// ParseDefinition разбирает одно описание
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("разбор описания NPC: %w", err)
	}
	if err := def.normalize(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinitions читает все *.yaml из каталога. Ключ результата - имя NPC
// в нижнем регистре.
func LoadDefinitions(dir string) (map[string]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога NPC %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	defs := make(map[string]*Definition, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("чтение %s: %w", name, err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		key := strings.ToLower(def.Name)
		if _, exists := defs[key]; exists {
			return nil, fmt.Errorf("%s: NPC %s описан дважды", name, def.Name)
		}
		defs[key] = def
	}
	return defs, nil
}
