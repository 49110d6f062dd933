// Package board is a small key-value store with change notification, used to
// fan the display state out to every screen session on one display host.
// Only the latest value of a key matters; there is no event queue.
package board

import (
	"context"
	"sync"
)

// Keys shared by the poller and the screen sessions.
const (
	KeyPublicCall = "publicCall"
	KeyVideoID    = "videoId"
)

// Event reports the new value of a key.
type Event struct {
	Key      string
	NewValue string
}

// Board holds string values and notifies watchers when one changes.
type Board struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[int]*watcher
	nextID   int
}

// New creates an empty board.
func New() *Board {
	return &Board{
		values:   make(map[string]string),
		watchers: make(map[int]*watcher),
	}
}

// Set stores value under key. Watchers are notified only when the value
// actually changes.
func (b *Board) Set(key, value string) {
	b.mu.Lock()
	old, exists := b.values[key]
	if exists && old == value {
		b.mu.Unlock()
		return
	}
	b.values[key] = value
	watchers := make([]*watcher, 0, len(b.watchers))
	for _, w := range b.watchers {
		watchers = append(watchers, w)
	}
	b.mu.Unlock()

	for _, w := range watchers {
		w.push(key, value)
	}
}

// Get returns the value stored under key.
func (b *Board) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

// Watch delivers changes made after the call until ctx is done, then closes
// the channel. A watcher that falls behind skips straight to the latest
// value of each key.
func (b *Board) Watch(ctx context.Context) <-chan Event {
	_, events := b.Subscribe(ctx)
	return events
}

// Subscribe is Watch plus a copy of every value stored when the watch began.
// No change is both in the snapshot and on the channel.
func (b *Board) Subscribe(ctx context.Context) (map[string]string, <-chan Event) {
	w := newWatcher()

	b.mu.Lock()
	snapshot := make(map[string]string, len(b.values))
	for k, v := range b.values {
		snapshot[k] = v
	}
	id := b.nextID
	b.nextID++
	b.watchers[id] = w
	b.mu.Unlock()

	out := make(chan Event)
	go func() {
		defer close(out)
		defer b.remove(id)
		for {
			ev, ok := w.pop()
			if !ok {
				select {
				case <-w.wake:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return snapshot, out
}

func (b *Board) remove(id int) {
	b.mu.Lock()
	delete(b.watchers, id)
	b.mu.Unlock()
}

// watcher keeps at most one pending value per key, in first-changed order.
type watcher struct {
	mu      sync.Mutex
	pending map[string]string
	order   []string
	wake    chan struct{}
}

func newWatcher() *watcher {
	return &watcher{
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
	}
}

func (w *watcher) push(key, value string) {
	w.mu.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = value
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) pop() (Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return Event{}, false
	}
	key := w.order[0]
	w.order = w.order[1:]
	value := w.pending[key]
	delete(w.pending, key)
	return Event{Key: key, NewValue: value}, true
}
