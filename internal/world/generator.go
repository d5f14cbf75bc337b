package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/mmo-tiles/internal/util"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// Константы высот для генерации
const (
	MountainStart = 0.72 // Выше - горы (статичные непроходимые клетки)
	StoneStart    = 0.60 // Выше - каменистая земля
)

// GeneratorConfig параметры генерации ландшафта
type GeneratorConfig struct {
	Seed   int64   `yaml:"seed"`
	Width  uint16  `yaml:"width"`
	Height uint16  `yaml:"height"`
	Floor  uint8   `yaml:"floor"`
	Scale  float64 `yaml:"noise_scale"`
	// DecorDensity вероятность декора (паутина, лианы) на траве
	DecorDensity float64 `yaml:"decor_density"`
	// Temple центр защищённой зоны появления персонажей
	Temple vec.Position `yaml:"temple"`
	// TempleRadius радиус защищённой зоны вокруг храма
	TempleRadius int `yaml:"temple_radius"`
}

// DefaultGeneratorConfig небольшой мир 64x64 на уровне моря
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:         42,
		Width:        64,
		Height:       64,
		Floor:        vec.SeaFloor,
		Scale:        0.08,
		DecorDensity: 0.03,
		Temple:       vec.NewPosition(32, 32, vec.SeaFloor),
		TempleRadius: 2,
	}
}

// Generator строит карту по шуму Перлина.
//
// Горы становятся статичными клетками: их содержимое почти не меняется, и память
// под списки выделяется только при первой записи. Проходимая земля получает
// динамические клетки.
type Generator struct {
	cfg   GeneratorConfig
	noise *util.Noise
	rng   *rand.Rand
}

// NewGenerator создаёт генератор
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Scale <= 0 {
		cfg.Scale = 0.08
	}
	return &Generator{
		cfg:   cfg,
		noise: util.NewNoise(cfg.Seed),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate заполняет карту клетками. Возвращает ошибку, если в каталоге
// нет нужных видов предметов.
func (g *Generator) Generate(m *Map) error {
	cfg := g.cfg
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("размер мира %dx%d", cfg.Width, cfg.Height)
	}
	for _, id := range []uint16{item.GrassID, item.StoneFloorID, item.MountainID, item.CobwebID, item.VinesID} {
		if _, ok := m.ItemType(id); !ok {
			return fmt.Errorf("в каталоге нет предмета %d", id)
		}
	}

	for y := uint16(0); y < cfg.Height; y++ {
		for x := uint16(0); x < cfg.Width; x++ {
			pos := vec.NewPosition(x, y, cfg.Floor)
			if g.inTemple(pos) {
				t := m.CreateTile(pos, true)
				t.InternalAddThing(0, m.catalog.MustCreate(item.StoneFloorID, 1))
				t.SetZoneFlags(tile.FlagProtectionZone)
				continue
			}

			height := g.noise.At(float64(x)*cfg.Scale, float64(y)*cfg.Scale)
			switch {
			case height >= MountainStart:
				t := m.CreateTile(pos, false)
				t.InternalAddThing(0, m.catalog.MustCreate(item.MountainID, 1))
			case height >= StoneStart:
				t := m.CreateTile(pos, true)
				t.InternalAddThing(0, m.catalog.MustCreate(item.StoneFloorID, 1))
			default:
				t := m.CreateTile(pos, true)
				t.InternalAddThing(0, m.catalog.MustCreate(item.GrassID, 1))
				g.decorate(m, t)
			}
		}
	}

	m.SetTemple(cfg.Temple)
	logger.Info("🌍 Сгенерирован мир %dx%d на этаже %d (seed=%d)", cfg.Width, cfg.Height, cfg.Floor, cfg.Seed)
	return nil
}

func (g *Generator) inTemple(pos vec.Position) bool {
	t := g.cfg.Temple
	return pos.Z == t.Z && pos.Distance(t) <= g.cfg.TempleRadius
}

func (g *Generator) decorate(m *Map, t *tile.Tile) {
	if g.cfg.DecorDensity <= 0 || g.rng.Float64() >= g.cfg.DecorDensity {
		return
	}
	id := item.VinesID
	if g.rng.Intn(2) == 0 {
		id = item.CobwebID
	}
	t.InternalAddThing(0, m.catalog.MustCreate(id, 1))
}
