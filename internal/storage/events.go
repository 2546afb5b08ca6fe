package storage

import "sync"

// Emitter fans events out to subscribed handlers. The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// On subscribes handler to event
func (e *Emitter) On(event string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string][]Handler)
	}
	e.handlers[event] = append(e.handlers[event], handler)
}

// Emit calls every handler subscribed to event, in subscription order.
func (e *Emitter) Emit(event string, ev Event) {
	e.mu.RLock()
	handlers := append([]Handler(nil), e.handlers[event]...)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
