// Package thing описывает общий контракт перемещения объектов по миру.
//
// Thing - всё, что может находиться в контейнере (предмет или существо).
// Cylinder - контейнер, принимающий и отдающий Thing по трёхфазному протоколу:
// запрос (Query*) → выбор реального получателя (QueryDestination) → изменение
// (AddThing/RemoveThing) → уведомление (Post*Notification).
package thing

import "github.com/annel0/mmo-tiles/internal/vec"

// IndexWherever означает «куда угодно»: контейнер сам выбирает позицию вставки.
const IndexWherever = -1

// Thing объект, который может лежать в контейнере
type Thing interface {
	// Parent возвращает контейнер, в котором находится объект (nil - нигде).
	Parent() Cylinder
	// SetParent вызывается только контейнером при вставке/удалении.
	SetParent(c Cylinder)
	// Position возвращает позицию объекта в мире (позицию его контейнера).
	Position() vec.Position
	// IsRemoved возвращает true, если объект не привязан к миру.
	IsRemoved() bool
	// ThrowRange дальность, на которую объект можно бросить.
	ThrowRange() int
	// IsPushable можно ли сдвинуть объект толчком.
	IsPushable() bool
}

// Cylinder контейнер, реализующий протокол перемещения.
//
// Query* методы не меняют состояние. AddThing/RemoveThing вызываются только после
// успешного запроса к неизменённому контейнеру и не имеют пути ошибки.
type Cylinder interface {
	Parent() Cylinder
	Position() vec.Position
	IsRemoved() bool

	QueryAdd(index int, t Thing, count uint32, flags Flags, actor Thing) ReturnValue
	QueryMaxCount(index int, t Thing, count uint32, flags Flags) (uint32, ReturnValue)
	QueryRemove(t Thing, count uint32, flags Flags) ReturnValue
	// QueryDestination может перенаправить вставку в другой контейнер.
	// Возвращает итоговый контейнер и предмет внутри него, с которым можно слить стопку.
	QueryDestination(index *int, t Thing, flags *Flags) (Cylinder, Thing)

	AddThing(index int, t Thing)
	UpdateThing(t Thing, itemID uint16, count uint32)
	ReplaceThing(index int, t Thing)
	RemoveThing(t Thing, count uint32)

	PostAddNotification(t Thing, oldParent Cylinder, index int, link Link)
	PostRemoveNotification(t Thing, newParent Cylinder, index int, link Link)

	ThingIndex(t Thing) int
	FirstIndex() int
	LastIndex() int
	ThingAt(index int) Thing
	ItemTypeCount(itemID uint16, subType int) uint32

	// InternalAddThing вставка без проверок и уведомлений (загрузка карты).
	InternalAddThing(index int, t Thing)
}

// Link роль контейнера по отношению к объекту в уведомлении
type Link uint8

const (
	LinkOwner Link = iota
	LinkParent
	LinkTopParent
	LinkNear
)

// String возвращает имя связи
func (l Link) String() string {
	switch l {
	case LinkOwner:
		return "owner"
	case LinkParent:
		return "parent"
	case LinkTopParent:
		return "top_parent"
	case LinkNear:
		return "near"
	default:
		return "unknown"
	}
}

// IsAncestor возвращает true, если t совпадает с c или с одним из его родителей.
// Используется для запрета вложения контейнера в самого себя.
func IsAncestor(t Thing, c Cylinder) bool {
	if t == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.Parent() {
		if asThing, ok := cur.(Thing); ok && asThing == t {
			return true
		}
	}
	return false
}
