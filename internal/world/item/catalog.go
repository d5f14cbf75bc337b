package item

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog реестр видов предметов.
// Заполняется при загрузке мира, дальше используется только на чтение.
type Catalog struct {
	types map[uint16]*ItemType
	mu    sync.RWMutex
}

type catalogFile struct {
	Items []ItemType `yaml:"items"`
}

// NewCatalog создаёт пустой каталог
func NewCatalog() *Catalog {
	return &Catalog{
		types: make(map[uint16]*ItemType),
	}
}

// LoadCatalog читает каталог предметов из YAML файла
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога предметов: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает YAML с разделом items
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("разбор каталога предметов: %w", err)
	}

	c := NewCatalog()
	for i := range file.Items {
		if err := c.Register(file.Items[i]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register добавляет вид предмета. Повторная регистрация id - ошибка.
func (c *Catalog) Register(t ItemType) error {
	if err := t.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[t.ID]; exists {
		return fmt.Errorf("предмет %d уже зарегистрирован", t.ID)
	}
	typ := t
	c.types[t.ID] = &typ
	return nil
}

// Get возвращает вид предмета по ID
func (c *Catalog) Get(id uint16) (*ItemType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.types[id]
	return t, ok
}

// Len количество зарегистрированных видов
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// IDs возвращает отсортированный список идентификаторов
func (c *Catalog) IDs() []uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]uint16, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Create создаёт новый экземпляр предмета указанного вида
func (c *Catalog) Create(id uint16, count uint16) (*Item, error) {
	t, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("неизвестный предмет %d", id)
	}
	return New(t, count), nil
}
