package pool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Task represents a unit of work
type Task func()

// WorkerPool runs dispatch tasks on a fixed set of worker goroutines.
// Submit never blocks the caller: when every worker is busy and the task
// channel is full, tasks spill into an unbounded overflow FIFO that
// workers drain before pulling from the channel again. The Fast protocol
// handler uses this so slow actions never stall a session's receive loop.
type WorkerPool struct {
	tasks chan Task
	wg    sync.WaitGroup

	// closeMu orders Submit's channel sends before Close's close(tasks):
	// Close flips closed under the write lock, so no Submit can be
	// mid-send when the channel closes.
	closeMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	overflow *queue.Queue

	stats struct {
		tasksSubmitted atomic.Uint64
		tasksCompleted atomic.Uint64
	}
}

// Stats holds pool counters.
type Stats struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	Overflow       int
}

// NewWorkerPool creates and starts a pool.
func NewWorkerPool(numWorkers, queueSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	p := &WorkerPool{
		tasks:    make(chan Task, queueSize),
		overflow: queue.New(),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}

	return p
}

// Submit enqueues a task. Returns false after Close.
func (p *WorkerPool) Submit(task Task) bool {
	if task == nil {
		return false
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return false
	}

	p.stats.tasksSubmitted.Add(1)

	select {
	case p.tasks <- task:
		return true
	default:
	}

	p.mu.Lock()
	p.overflow.Add(task)
	p.mu.Unlock()

	// Nudge an idle worker in case the channel drained in the meantime;
	// workers always check the overflow queue first.
	select {
	case p.tasks <- Task(func() {}):
	default:
	}
	return true
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		task, ok := p.next()
		if !ok {
			return
		}
		task()
		p.stats.tasksCompleted.Add(1)
	}
}

// next prefers overflowed tasks over the channel so spilled work cannot
// starve behind an idle channel.
func (p *WorkerPool) next() (Task, bool) {
	p.mu.Lock()
	if p.overflow.Length() > 0 {
		task := p.overflow.Remove().(Task)
		p.mu.Unlock()
		return task, true
	}
	p.mu.Unlock()

	task, ok := <-p.tasks
	return task, ok
}

// Close stops accepting tasks and waits for queued work to finish.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}

// Stats returns pool counters.
func (p *WorkerPool) Stats() Stats {
	p.mu.Lock()
	overflow := p.overflow.Length()
	p.mu.Unlock()

	return Stats{
		TasksSubmitted: p.stats.tasksSubmitted.Load(),
		TasksCompleted: p.stats.tasksCompleted.Load(),
		Overflow:       overflow,
	}
}
