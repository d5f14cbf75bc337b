package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrClosed шина закрыта
var ErrClosed = errors.New("шина событий закрыта")

// EncodingZstd значение заголовка Content-Encoding для сжатых конвертов
const EncodingZstd = "zstd"

// compressMinSize конверты меньше этого размера не сжимаются
const compressMinSize = 256

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// EncodeEnvelope сериализует конверт в JSON и при compress сжимает его zstd.
// Возвращает данные и кодировку ("" или EncodingZstd).
func EncodeEnvelope(ev *Envelope, compress bool) ([]byte, string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, "", fmt.Errorf("сериализация конверта: %w", err)
	}
	if !compress || len(data) < compressMinSize {
		return data, "", nil
	}
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, "", fmt.Errorf("zstd: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), EncodingZstd, nil
}

// DecodeEnvelope разбирает конверт с учётом кодировки
func DecodeEnvelope(data []byte, encoding string) (*Envelope, error) {
	switch encoding {
	case "":
	case EncodingZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("распаковка конверта: %w", err)
		}
	default:
		return nil, fmt.Errorf("неизвестная кодировка конверта %q", encoding)
	}

	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("разбор конверта: %w", err)
	}
	return &ev, nil
}
