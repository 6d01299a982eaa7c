package client

import (
	"context"
	"sync"
)

//queue is an unbounded FIFO of commands which tracks how many entries are still unfinished
type queue struct {
	mu      sync.Mutex
	items   []string
	pending int
	// ready is signaled whenever an item is pushed
	ready chan struct{}
	// idle is closed and replaced whenever pending drops to zero
	idle chan struct{}
}

func newQueue() *queue {
	q := &queue{
		ready: make(chan struct{}, 1),
		idle:  make(chan struct{}),
	}
	close(q.idle)
	return q
}

func (q *queue) push(cmd string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, cmd)
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

//pop blocks until an item is available or ctx is done
func (q *queue) pop(ctx context.Context) (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return cmd, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-q.ready:
		}
	}
}

//unpop returns a popped but unattempted item to the head of the queue
func (q *queue) unpop(cmd string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]string{cmd}, q.items...)
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

//done marks a popped item as attempted
func (q *queue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return
	}
	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

//wait blocks until every pushed item has been marked done or ctx is done
func (q *queue) wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
