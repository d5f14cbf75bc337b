package vec

import "fmt"

// MaxFloor номер самого глубокого этажа карты (0 - небо, 7 - уровень моря).
const MaxFloor = 15

// SeaFloor этаж поверхности; выше него видны все надземные этажи сразу.
const SeaFloor = 7

// Position представляет клетку мира: X, Y и этаж Z.
// Значение неизменяемое, сравнивается структурно (==).
type Position struct {
	X uint16 `json:"x" yaml:"x"`
	Y uint16 `json:"y" yaml:"y"`
	Z uint8  `json:"z" yaml:"z"`
}

// NewPosition создаёт позицию из координат
func NewPosition(x, y uint16, z uint8) Position {
	return Position{X: x, Y: y, Z: z}
}

// Offset возвращает позицию, сдвинутую на (dx, dy, dz).
// Координаты переполняются так же, как uint16/uint8 - вызывающий проверяет границы сам.
func (p Position) Offset(dx, dy, dz int) Position {
	return Position{
		X: uint16(int(p.X) + dx),
		Y: uint16(int(p.Y) + dy),
		Z: uint8(int(p.Z) + dz),
	}
}

// Step возвращает соседнюю клетку в указанном направлении на том же этаже
func (p Position) Step(dir Direction) Position {
	dx, dy := dir.Delta()
	return p.Offset(dx, dy, 0)
}

// DistanceX возвращает |dx|
func (p Position) DistanceX(other Position) int {
	return absInt(int(p.X) - int(other.X))
}

// DistanceY возвращает |dy|
func (p Position) DistanceY(other Position) int {
	return absInt(int(p.Y) - int(other.Y))
}

// DistanceZ возвращает |dz|
func (p Position) DistanceZ(other Position) int {
	return absInt(int(p.Z) - int(other.Z))
}

// Distance возвращает расстояние Чебышёва на плоскости (этаж не учитывается)
func (p Position) Distance(other Position) int {
	dx := p.DistanceX(other)
	dy := p.DistanceY(other)
	if dx > dy {
		return dx
	}
	return dy
}

// IsZero возвращает true для нулевой позиции (используется как «не задано»)
func (p Position) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// String возвращает позицию в формате (x, y, z)
func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
