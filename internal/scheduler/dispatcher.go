// Package scheduler содержит поток-писатель мира (Dispatcher) и отложенные
// события (Scheduler). Все изменения карты выполняются задачами диспетчера.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/annel0/mmo-tiles/internal/logging"
)

// ErrStopped диспетчер уже остановлен
var ErrStopped = errors.New("диспетчер остановлен")

type state uint8

const (
	stateCreated state = iota
	stateRunning
	stateClosing
	stateTerminated
)

// Dispatcher выполняет задачи по одной в порядке добавления
type Dispatcher struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	state  state
	done   chan struct{}
	counts struct {
		executed uint64
		dropped  uint64
	}
}

// NewDispatcher создаёт диспетчер; задачи начнут выполняться после Start
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start запускает поток диспетчера
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.state != stateCreated {
		d.mu.Unlock()
		return
	}
	d.state = stateRunning
	d.mu.Unlock()

	go d.loop()
}

// Run запускает диспетчер и останавливает его при отмене ctx
func (d *Dispatcher) Run(ctx context.Context) {
	d.Start()
	select {
	case <-ctx.Done():
		d.Stop()
	case <-d.done:
	}
}

// Add ставит задачу в очередь. После остановки задачи отбрасываются.
func (d *Dispatcher) Add(task func()) bool {
	if task == nil {
		return false
	}
	d.mu.Lock()
	if d.state == stateClosing || d.state == stateTerminated {
		d.counts.dropped++
		d.mu.Unlock()
		return false
	}
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Do выполняет задачу в потоке диспетчера и ждёт её завершения
func (d *Dispatcher) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !d.Add(func() {
		defer close(finished)
		task()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		// задача могла выполниться последней перед остановкой
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop выполняет уже поставленные задачи и завершает поток
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	switch d.state {
	case stateCreated:
		d.state = stateTerminated
		d.mu.Unlock()
		close(d.done)
		return
	case stateRunning:
		d.state = stateClosing
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

// Shutdown отбрасывает очередь и завершает поток
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.counts.dropped += uint64(len(d.tasks))
	d.tasks = nil
	d.mu.Unlock()
	d.Stop()
}

// Done закрывается после завершения потока
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Stats количество выполненных и отброшенных задач
func (d *Dispatcher) Stats() (executed, dropped uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts.executed, d.counts.dropped
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for {
		d.mu.Lock()
		batch := d.tasks
		d.tasks = nil
		closing := d.state == stateClosing
		d.mu.Unlock()

		for _, task := range batch {
			d.execute(task)
		}

		if len(batch) > 0 {
			continue
		}
		if closing {
			d.mu.Lock()
			d.state = stateTerminated
			d.mu.Unlock()
			logging.Debug("Диспетчер остановлен")
			return
		}
		<-d.wake
	}
}

func (d *Dispatcher) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Паника в задаче диспетчера: %v", r)
		}
	}()
	task()

	d.mu.Lock()
	d.counts.executed++
	d.mu.Unlock()
}
