package engine

import "sync"

// eventBus provides internal event handling. Handlers run in their own
// goroutine so a slow subscriber never blocks a mutation.
type eventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType]map[int]any
}

func newEventBus() *eventBus {
	return &eventBus{
		handlers: make(map[EventType]map[int]any),
	}
}

// on registers a handler and returns its unsubscribe function.
func (eb *eventBus) on(event EventType, handler any) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.handlers[event] == nil {
		eb.handlers[event] = make(map[int]any)
	}
	id := eb.nextID
	eb.nextID++
	eb.handlers[event][id] = handler

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		delete(eb.handlers[event], id)
		if len(eb.handlers[event]) == 0 {
			delete(eb.handlers, event)
		}
	}
}

func (eb *eventBus) emit(event EventType, data any) {
	eb.mu.RLock()
	handlers := make([]any, 0, len(eb.handlers[event]))
	for _, h := range eb.handlers[event] {
		handlers = append(handlers, h)
	}
	eb.mu.RUnlock()

	for _, handler := range handlers {
		go func(h any) {
			switch evt := data.(type) {
			case DocumentChange:
				if fn, ok := h.(DocumentChangeHandler); ok {
					fn(evt)
				} else if fn, ok := h.(func(DocumentChange)); ok {
					fn(evt)
				}
			case TemplateEvent:
				if fn, ok := h.(TemplateEventHandler); ok {
					fn(evt)
				} else if fn, ok := h.(func(TemplateEvent)); ok {
					fn(evt)
				}
			case error:
				if fn, ok := h.(ErrorHandler); ok {
					fn(evt)
				} else if fn, ok := h.(func(error)); ok {
					fn(evt)
				}
			}
		}(handler)
	}
}
