// Package eventbus доставляет события мира (изменения клеток, реплики NPC)
// внешним потребителям: в памяти процесса или через NATS JetStream.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Envelope конверт события.
type Envelope struct {
	ID            string            `json:"id"`         // UUID
	Timestamp     time.Time         `json:"timestamp"`  // UTC
	Source        string            `json:"source"`     // world, npc ...
	EventType     string            `json:"event_type"` // TileAdded, NpcSpeech ...
	Version       int               `json:"version"`    // версия схемы полезной нагрузки
	CorrelationID string            `json:"correlation_id,omitempty"`
	Priority      int               `json:"priority"` // 0=Low … 9=Critical
	Payload       []byte            `json:"payload"`  // JSON полезной нагрузки
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter отбирает события по типу и источнику.
type Filter struct {
	Types   []string // Если пусто - все типы.
	Sources []string // Если пусто - все источники.
}

// Match проверяет конверт фильтром
func (f Filter) Match(ev *Envelope) bool {
	return matchAny(ev.EventType, f.Types) && matchAny(ev.Source, f.Sources)
}

func matchAny(val string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if v == val {
			return true
		}
	}
	return false
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus шина событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

// highPriority с этого приоритета публикация ждёт места в буфере
const highPriority = 5

//================ In-Memory implementation =================//

// MemoryBus шина в памяти процесса. Каждый подписчик получает события
// в порядке публикации в своей горутине.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*memSub
	nextID      int

	// closeMu защищает buffer от закрытия во время отправки
	closeMu sync.RWMutex
	closed  bool
	buffer  chan *Envelope
	done    chan struct{}

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

type memSub struct {
	bus     *MemoryBus
	id      int
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
	once    sync.Once
}

// NewMemoryBus создаёт шину с буфером на capacity событий.
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = 1024
	}
	mb := &MemoryBus{
		subscribers: make(map[int]*memSub),
		buffer:      make(chan *Envelope, capacity),
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

// Publish ставит событие в буфер. При заполненном буфере события с низким
// приоритетом (<5) отбрасываются, остальные ждут места или отмены ctx.
func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.closeMu.RLock()
	defer mb.closeMu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	default:
	}

	if ev.Priority < highPriority {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe регистрирует обработчик; подписка живёт до Unsubscribe или отмены ctx.
func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.closeMu.RLock()
	closed := mb.closed
	mb.closeMu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	sub := &memSub{
		bus:     mb,
		id:      mb.nextID,
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, cap(mb.buffer)),
	}
	mb.nextID++
	mb.subscribers[sub.id] = sub
	go sub.run()
	return sub, nil
}

// Metrics счётчики шины
func (mb *MemoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.buffer),
	}
}

// Close останавливает рассылку; уже принятые события доставляются.
func (mb *MemoryBus) Close() error {
	mb.closeMu.Lock()
	if mb.closed {
		mb.closeMu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.closeMu.Unlock()

	<-mb.done
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков.
func (mb *MemoryBus) dispatchLoop() {
	defer close(mb.done)
	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]*memSub, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			subs = append(subs, sub)
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			if !sub.filter.Match(ev) {
				continue
			}
			select {
			case sub.queue <- ev:
			case <-sub.ctx.Done():
			default:
				// подписчик не успевает
				mb.dropped.Add(1)
			}
		}
	}

	mb.mu.Lock()
	for id, sub := range mb.subscribers {
		sub.stop()
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()
}

func (s *memSub) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.queue:
			if !ok {
				return
			}
			s.handler(s.ctx, ev)
			s.bus.consumed.Add(1)
		}
	}
}

// stop закрывает очередь: оставшиеся события обрабатываются, затем горутина выходит
func (s *memSub) stop() {
	s.once.Do(func() { close(s.queue) })
}

// Unsubscribe прекращает доставку
func (s *memSub) Unsubscribe() {
	s.cancel()
	s.bus.mu.Lock()
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()
}
