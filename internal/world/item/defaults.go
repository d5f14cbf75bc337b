package item

import (
	_ "embed"
)

//go:embed items.yaml
var defaultCatalogYAML []byte

// Идентификаторы предметов базового каталога
const (
	GrassID        uint16 = 100
	StoneFloorID   uint16 = 101
	VoidID         uint16 = 102
	MountainID     uint16 = 103
	WoodenFloorID  uint16 = 104
	StoneWallID    uint16 = 200
	LadderID       uint16 = 201
	HoleID         uint16 = 202
	RampID         uint16 = 203
	LongRampID     uint16 = 204
	LongEastRampID uint16 = 205
	EastRampID     uint16 = 206
	PortalID       uint16 = 210
	MailboxID      uint16 = 220
	TrashBinID     uint16 = 221
	BedID          uint16 = 222
	DepotID        uint16 = 223
	GoldCoinID     uint16 = 300
	PlatinumCoinID uint16 = 301
	SwordID        uint16 = 302
	BackpackID     uint16 = 303
	TorchID        uint16 = 304
	ArrowID        uint16 = 305
	TableID        uint16 = 310
	BarrelID       uint16 = 311
	CounterID      uint16 = 312
	BloodID        uint16 = 320
	WaterSplashID  uint16 = 321
	FireFieldID    uint16 = 330
	PoisonFieldID  uint16 = 331
	MagicWallID    uint16 = 332
	CobwebID       uint16 = 340
	VinesID        uint16 = 341
)

// DefaultCatalog возвращает встроенный каталог предметов
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic("встроенный каталог предметов повреждён: " + err.Error())
	}
	return c
}

// MustCreate создаёт предмет или паникует (для загрузчиков и тестов)
func (c *Catalog) MustCreate(id uint16, count uint16) *Item {
	it, err := c.Create(id, count)
	if err != nil {
		panic(err)
	}
	return it
}
