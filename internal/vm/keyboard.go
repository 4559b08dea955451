package vm

import (
	"context"
	"sync"
)

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyQueue is an unbounded single-producer single-consumer queue of key presses.
type KeyQueue struct {
	mu      sync.Mutex
	pending []Key
	ready   chan struct{}
}

func NewKeyQueue() *KeyQueue {
	return &KeyQueue{ready: make(chan struct{}, 1)}
}

// Push enqueues a key press. It never blocks.
func (q *KeyQueue) Push(key Key) {
	q.mu.Lock()
	q.pending = append(q.pending, key&0x0F)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Poll dequeues the oldest pending key, if any.
func (q *KeyQueue) Poll() (Key, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return 0, false
	}

	key := q.pending[0]
	q.pending = q.pending[1:]
	return key, true
}

// Wait blocks until a key is available or ctx is done.
func (q *KeyQueue) Wait(ctx context.Context) (Key, error) {
	for {
		if key, ok := q.Poll(); ok {
			return key, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-q.ready:
		}
	}
}
