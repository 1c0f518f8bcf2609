// Package emitter provides a small in-process publish/subscribe registry
// with synchronous, subscription-ordered delivery.
//
// Contract:
//   - Emit invokes listeners in the order they subscribed.
//   - Listeners may subscribe or unsubscribe (including themselves) from
//     inside a handler; the in-progress dispatch is unaffected.
//   - Unsubscribe funcs are idempotent.
package emitter

import "sync"

type listener[E any] struct {
	id   uint64
	fn   func(E)
	once bool
}

// Emitter fans events out to listeners keyed by topic.
type Emitter[E any] struct {
	mu     sync.Mutex
	seq    uint64
	topics map[string][]listener[E]
}

func New[E any]() *Emitter[E] {
	return &Emitter[E]{topics: map[string][]listener[E]{}}
}

// On registers fn for topic and returns its unsubscribe func.
func (m *Emitter[E]) On(topic string, fn func(E)) func() {
	return m.add(topic, fn, false)
}

// Once registers fn for a single delivery.
func (m *Emitter[E]) Once(topic string, fn func(E)) func() {
	return m.add(topic, fn, true)
}

func (m *Emitter[E]) add(topic string, fn func(E), once bool) func() {
	m.mu.Lock()
	m.seq++
	id := m.seq
	m.topics[topic] = append(m.topics[topic], listener[E]{id: id, fn: fn, once: once})
	m.mu.Unlock()

	var offOnce sync.Once
	return func() {
		offOnce.Do(func() { m.remove(topic, id) })
	}
}

func (m *Emitter[E]) remove(topic string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls := m.topics[topic]
	for i, l := range ls {
		if l.id == id {
			m.topics[topic] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(m.topics[topic]) == 0 {
		delete(m.topics, topic)
	}
}

// Emit delivers e to every listener registered for topic at call time.
// The listener list is snapshotted first, so reentrant (un)subscriptions
// never affect the in-progress dispatch; one-shot listeners are retired
// before dispatch so a handler re-emitting the topic cannot double-fire
// them.
func (m *Emitter[E]) Emit(topic string, e E) {
	m.mu.Lock()
	ls := m.topics[topic]
	if len(ls) == 0 {
		m.mu.Unlock()
		return
	}
	snap := append([]listener[E](nil), ls...)
	kept := ls[:0]
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(m.topics, topic)
	} else {
		m.topics[topic] = kept
	}
	m.mu.Unlock()

	for _, l := range snap {
		l.fn(e)
	}
}

// Len reports the number of listeners currently registered for topic.
func (m *Emitter[E]) Len(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[topic])
}
