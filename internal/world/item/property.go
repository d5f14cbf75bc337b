package item

// Property свойство предмета, агрегируемое клеткой
type Property uint8

const (
	PropBlockSolid Property = iota
	PropHasHeight
	PropBlockProjectile
	PropBlockPath
	PropIsVertical
	PropIsHorizontal
	PropMoveable
	PropImmovableBlockSolid
	PropImmovableBlockPath
	PropImmovableNoFieldBlockPath
	PropNoFieldBlockPath
	PropSupportHangable
)

// HasProperty проверяет свойство с учётом атрибутов экземпляра
func (i *Item) HasProperty(p Property) bool {
	t := i.typ
	switch p {
	case PropBlockSolid:
		return t.BlockSolid
	case PropHasHeight:
		return t.HasHeight
	case PropBlockProjectile:
		return t.BlockProjectile
	case PropBlockPath:
		return t.BlockPath
	case PropIsVertical:
		return t.Vertical
	case PropIsHorizontal:
		return t.Horizontal
	case PropMoveable:
		return i.IsMoveable()
	case PropImmovableBlockSolid:
		return t.BlockSolid && !i.IsMoveable()
	case PropImmovableBlockPath:
		return t.BlockPath && !i.IsMoveable()
	case PropImmovableNoFieldBlockPath:
		return !t.IsMagicField() && t.BlockPath && !i.IsMoveable()
	case PropNoFieldBlockPath:
		return !t.IsMagicField() && t.BlockPath
	case PropSupportHangable:
		return t.Horizontal || t.Vertical
	default:
		return false
	}
}
