package thing

// Flags модификаторы запросов протокола перемещения
type Flags uint32

const (
	// FlagNoLimit игнорирует блокирующие предметы и существ (перенаправленная вставка).
	FlagNoLimit Flags = 1 << iota
	// FlagIgnoreBlockItem пропускает проверку блокирующих предметов.
	FlagIgnoreBlockItem
	// FlagIgnoreBlockCreature пропускает проверку существ на клетке.
	FlagIgnoreBlockCreature
	// FlagChildIsOwner уведомления адресованы владельцу дочернего контейнера.
	FlagChildIsOwner
	// FlagPathFinding запрос пришёл из поиска пути.
	FlagPathFinding
	// FlagIgnoreFieldDamage существо готово пройти через магическое поле.
	FlagIgnoreFieldDamage
	// FlagIgnoreNotMoveable разрешает удалять неперемещаемые предметы.
	FlagIgnoreNotMoveable
	// FlagIgnoreAutoStack запрещает слияние стопок при вставке.
	FlagIgnoreAutoStack
)

// Has проверяет, что все биты f установлены
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}
