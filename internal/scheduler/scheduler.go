package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/annel0/mmo-tiles/internal/logging"
)

// MinDelay минимальная задержка отложенного события
const MinDelay = 50 * time.Millisecond

// event отложенная задача
type event struct {
	id     uint32
	expire time.Time
	task   func()
	seq    uint64
}

// eventQueue куча событий по времени срабатывания
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].expire.Equal(q[j].expire) {
		return q[i].seq < q[j].seq
	}
	return q[i].expire.Before(q[j].expire)
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Scheduler откладывает задачи и по истечении передаёт их диспетчеру
type Scheduler struct {
	dispatcher *Dispatcher

	mu      sync.Mutex
	queue   eventQueue
	active  map[uint32]struct{}
	lastID  uint32
	seq     uint64
	state   state
	wake    chan struct{}
	done    chan struct{}
	nowFunc func() time.Time
}

// NewScheduler создаёт планировщик поверх диспетчера
func NewScheduler(d *Dispatcher) *Scheduler {
	return &Scheduler{
		dispatcher: d,
		active:     make(map[uint32]struct{}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		nowFunc:    time.Now,
	}
}

// Start запускает поток планировщика
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != stateCreated {
		s.mu.Unlock()
		return
	}
	s.state = stateRunning
	s.mu.Unlock()

	go s.loop()
}

// Run запускает планировщик и останавливает его при отмене ctx
func (s *Scheduler) Run(ctx context.Context) {
	s.Start()
	select {
	case <-ctx.Done():
		s.Shutdown()
	case <-s.done:
	}
}

// AddEvent откладывает задачу на delay (не меньше MinDelay).
// Возвращает идентификатор события; идентификаторы строго возрастают.
// После остановки возвращает 0.
func (s *Scheduler) AddEvent(delay time.Duration, task func()) uint32 {
	if task == nil {
		return 0
	}
	if delay < MinDelay {
		delay = MinDelay
	}

	s.mu.Lock()
	if s.state == stateClosing || s.state == stateTerminated {
		s.mu.Unlock()
		return 0
	}

	s.lastID++
	if s.lastID == 0 {
		s.lastID = 1
	}
	s.seq++
	ev := &event{id: s.lastID, expire: s.nowFunc().Add(delay), task: task, seq: s.seq}
	heap.Push(&s.queue, ev)
	s.active[ev.id] = struct{}{}
	first := s.queue[0] == ev
	s.mu.Unlock()

	if first {
		s.signal()
	}
	return ev.id
}

// StopEvent отменяет событие. Возвращает false, если оно уже выполнено или не существует.
func (s *Scheduler) StopEvent(id uint32) bool {
	if id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; !ok {
		return false
	}
	// событие остаётся в куче и пропускается при срабатывании
	delete(s.active, id)
	return true
}

// Pending количество ожидающих событий
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Shutdown отменяет все события и останавливает планировщик
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	switch s.state {
	case stateCreated:
		s.state = stateTerminated
		s.queue = nil
		s.active = make(map[uint32]struct{})
		s.mu.Unlock()
		close(s.done)
		return
	case stateRunning:
		s.state = stateClosing
	}
	s.queue = nil
	s.active = make(map[uint32]struct{})
	s.mu.Unlock()

	s.signal()
	<-s.done
}

// Done закрывается после завершения потока
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.state == stateClosing {
			s.state = stateTerminated
			s.mu.Unlock()
			logging.Debug("Планировщик остановлен")
			return
		}

		var wait time.Duration = -1
		now := s.nowFunc()
		for s.queue.Len() > 0 {
			next := s.queue[0]
			if next.expire.After(now) {
				wait = next.expire.Sub(now)
				break
			}
			heap.Pop(&s.queue)
			if _, ok := s.active[next.id]; !ok {
				continue
			}
			delete(s.active, next.id)
			if !s.dispatcher.Add(next.task) {
				logging.Warn("Событие %d отброшено: диспетчер остановлен", next.id)
			}
		}
		s.mu.Unlock()

		if wait < 0 {
			<-s.wake
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-s.wake:
		}
	}
}
