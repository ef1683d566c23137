package megaplan

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// workerPool is the acquisition pool: a fixed set of workers draining a
// buffered queue of batch jobs. Callers submit jobs and join on their own
// WaitGroup; the pool itself only guarantees bounded concurrency.
type workerPool struct {
	mu     sync.Mutex
	queue  chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func newWorkerPool(workers, queueSize int, log zerolog.Logger) *workerPool {
	if workers <= 0 {
		workers = 5
	}
	if queueSize <= 0 {
		queueSize = 128
	}
	p := &workerPool{
		queue:  make(chan func(), queueSize),
		stopCh: make(chan struct{}),
		log:    log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			job()
		}
	}
}

// submit enqueues a job, blocking while the queue is full. Returns false
// once the pool is stopping.
func (p *workerPool) submit(job func()) bool {
	select {
	case <-p.stopCh:
		return false
	default:
	}
	select {
	case p.queue <- job:
		return true
	case <-p.stopCh:
		return false
	}
}

// stop waits up to timeout for in-flight jobs, then abandons stragglers.
func (p *workerPool) stop(timeout time.Duration) {
	p.mu.Lock()
	select {
	case <-p.stopCh:
		p.mu.Unlock()
		return
	default:
	}
	close(p.stopCh)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		p.log.Warn().Msg("acquisition pool stop timeout, abandoning in-flight jobs")
	}
}
