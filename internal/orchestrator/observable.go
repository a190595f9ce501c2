package orchestrator

import "sync"

// DefaultSubscriberBuffer is the channel capacity of each subscription.
const DefaultSubscriberBuffer = 16

// Observable holds a value and notifies subscribers of every change.
// Delivery never blocks the publisher: when a subscriber's buffer is full the
// oldest pending value is dropped, so the latest value always arrives.
type Observable[T any] struct {
	mu          sync.RWMutex
	value       T
	buffer      int
	subscribers map[chan T]struct{}
}

// NewObservable creates an observable holding initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value:       initial,
		buffer:      DefaultSubscriberBuffer,
		subscribers: make(map[chan T]struct{}),
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Subscribe returns a channel that first yields the current value and then
// every published value. The returned func unsubscribes and closes the
// channel.
func (o *Observable[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, o.buffer)
	o.mu.Lock()
	ch <- o.value
	o.subscribers[ch] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subscribers, ch)
			close(ch)
			o.mu.Unlock()
		})
	}
}

// Publish stores v and sends it to every subscriber.
func (o *Observable[T]) Publish(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	for ch := range o.subscribers {
		deliver(ch, v)
	}
}

func deliver[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		// Full: drop the oldest pending value and retry.
		select {
		case <-ch:
		default:
		}
	}
}

// Count returns the current number of subscribers.
func (o *Observable[T]) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subscribers)
}
