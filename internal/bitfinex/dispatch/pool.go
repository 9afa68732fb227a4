package dispatch

import (
	"go.uber.org/zap"
)

// Pool is a fixed-size worker pool shared by all callback registries.
// Submitted tasks never run on the submitting goroutine and a panicking
// task never takes a worker down.
type Pool struct {
	tasks  chan func()
	logger *zap.Logger
}

// NewPool starts a pool with the given number of workers and queue size.
func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit schedules a task without blocking the caller. When the queue is
// full the task runs on a fresh goroutine instead; producers must never
// stall behind slow callbacks.
func (p *Pool) Submit(task func()) {
	select {
	case p.tasks <- task:
	default:
		go p.run(task)
	}
}

// Close stops the workers once queued tasks drain. Submitting after Close
// is not allowed.
func (p *Pool) Close() {
	close(p.tasks)
}

func (p *Pool) worker() {
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("callback panicked", zap.Any("panic", r))
		}
	}()
	task()
}
