package audiosvc

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher is a serial work queue. Every task runs on a single goroutine,
// in submission order, so notification handlers and deferred restores never
// overlap each other.
type Dispatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	tasks chan func()

	// Control channels
	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewDispatcher creates a dispatcher with a buffered queue.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		tasks:  make(chan func(), 64),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins processing queued tasks.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.loop(d.stopCh, d.doneCh)
	d.logger.Debug("dispatcher started")
}

// Stop stops the queue and waits for the running task to finish.
// Tasks still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	doneCh := d.doneCh
	d.mu.Unlock()

	<-doneCh
	d.logger.Debug("dispatcher stopped")
}

// Post queues fn. It returns false if the dispatcher is not running.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	running := d.running
	stopCh := d.stopCh
	d.mu.Unlock()

	if !running {
		return false
	}

	select {
	case d.tasks <- fn:
		return true
	case <-stopCh:
		return false
	}
}

// After queues fn once delay has elapsed. cancel reports whether fn was
// prevented from being queued.
func (d *Dispatcher) After(delay time.Duration, fn func()) (cancel func() bool) {
	timer := time.AfterFunc(delay, func() {
		if !d.Post(fn) {
			d.logger.Debug("deferred task dropped, dispatcher stopped")
		}
	})
	return timer.Stop
}

// Sync blocks until every task queued before the call has run.
func (d *Dispatcher) Sync() {
	done := make(chan struct{})
	if !d.Post(func() { close(done) }) {
		return
	}

	d.mu.Lock()
	stopCh := d.stopCh
	d.mu.Unlock()

	select {
	case <-done:
	case <-stopCh:
	}
}

// loop is the main dispatch loop.
func (d *Dispatcher) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return
		case fn := <-d.tasks:
			d.run(fn)
		}
	}
}

// run executes a task, containing panics so the queue keeps draining.
func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatched task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
