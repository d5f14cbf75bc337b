package tile

import (
	"fmt"

	"github.com/annel0/mmo-tiles/internal/world/item"
)

// ItemList упорядоченная стопка предметов клетки (без земли).
// Позиции [0, downCount) - нижние предметы снизу вверх,
// [downCount, len) - верхние предметы; последний верхний рисуется самым верхним.
type ItemList struct {
	items     []*item.Item
	downCount int
}

// Len общее количество предметов.
// Методы чтения допускают nil-список и ведут себя как для пустого.
func (l *ItemList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// DownCount количество нижних предметов
func (l *ItemList) DownCount() int {
	if l == nil {
		return 0
	}
	return l.downCount
}

// TopCount количество верхних предметов
func (l *ItemList) TopCount() int { return l.Len() - l.DownCount() }

// At возвращает предмет по позиции или nil
func (l *ItemList) At(pos int) *item.Item {
	if pos < 0 || pos >= l.Len() {
		return nil
	}
	return l.items[pos]
}

// InsertAt вставляет предмет. Верхний предмет должен попадать в верхний диапазон,
// нижний - в нижний; нарушение этого условия считается ошибкой программы.
func (l *ItemList) InsertAt(pos int, it *item.Item) {
	if it.IsTop() {
		if pos < l.downCount || pos > len(l.items) {
			panic(fmt.Sprintf("itemlist: позиция %d вне верхнего диапазона [%d, %d]", pos, l.downCount, len(l.items)))
		}
	} else {
		if pos < 0 || pos > l.downCount {
			panic(fmt.Sprintf("itemlist: позиция %d вне нижнего диапазона [0, %d]", pos, l.downCount))
		}
		l.downCount++
	}

	l.items = append(l.items, nil)
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = it
}

// RemoveAt удаляет предмет и возвращает его
func (l *ItemList) RemoveAt(pos int) *item.Item {
	if pos < 0 || pos >= len(l.items) {
		panic(fmt.Sprintf("itemlist: позиция %d вне диапазона [0, %d)", pos, len(l.items)))
	}
	it := l.items[pos]
	copy(l.items[pos:], l.items[pos+1:])
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	if pos < l.downCount {
		l.downCount--
	}
	return it
}

// ReplaceAt заменяет предмет в той же позиции без изменения границы диапазонов
func (l *ItemList) ReplaceAt(pos int, it *item.Item) *item.Item {
	old := l.items[pos]
	l.items[pos] = it
	return old
}

// IndexOf возвращает позицию предмета или -1
func (l *ItemList) IndexOf(it *item.Item) int {
	if l == nil {
		return -1
	}
	for i, cur := range l.items {
		if cur == it {
			return i
		}
	}
	return -1
}

// TopDownItem первый нижний предмет или nil
func (l *ItemList) TopDownItem() *item.Item {
	if l.DownCount() == 0 {
		return nil
	}
	return l.items[0]
}

// TopTopItem последний верхний предмет или nil
func (l *ItemList) TopTopItem() *item.Item {
	if l.TopCount() == 0 {
		return nil
	}
	return l.items[len(l.items)-1]
}

// DownItems нижние предметы (срез разделяет память со списком)
func (l *ItemList) DownItems() []*item.Item {
	if l == nil {
		return nil
	}
	return l.items[:l.downCount]
}

// TopItems верхние предметы (срез разделяет память со списком)
func (l *ItemList) TopItems() []*item.Item {
	if l == nil {
		return nil
	}
	return l.items[l.downCount:]
}

// All все предметы: сначала нижние, затем верхние
func (l *ItemList) All() []*item.Item {
	if l == nil {
		return nil
	}
	return l.items
}

func (l *ItemList) clear() {
	for i := range l.items {
		l.items[i] = nil
	}
	l.items = l.items[:0]
	l.downCount = 0
}
