package storage

import (
	"bytes"
	"fmt"
	"time"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/vmihailenco/msgpack"
)

// positionRecord запись позиции в key-value хранилищах (redis, badger, bolt)
type positionRecord struct {
	Position  vec.Position `json:"position"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// encodeRecord упаковывает запись в msgpack по правилам JSON тегов
func encodeRecord(pos vec.Position) ([]byte, error) {
	var out bytes.Buffer
	enc := msgpack.NewEncoder(&out)
	enc.UseJSONTag(true)
	if err := enc.Encode(positionRecord{Position: pos, UpdatedAt: time.Now().UTC()}); err != nil {
		return nil, fmt.Errorf("упаковка позиции: %w", err)
	}
	return out.Bytes(), nil
}

func decodeRecord(data []byte) (positionRecord, error) {
	var rec positionRecord
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseJSONTag(true)
	if err := dec.Decode(&rec); err != nil {
		return positionRecord{}, fmt.Errorf("распаковка позиции: %w", err)
	}
	return rec, nil
}

// recordKey ключ записи с префиксом
func recordKey(prefix string, characterID uint64) string {
	return fmt.Sprintf("%s%d", prefix, characterID)
}
