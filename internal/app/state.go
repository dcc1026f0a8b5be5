// Package app provides the interaction controller, its events, and the theme.
package app

import "sync"

// State is the controller's interaction state.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateRecognizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateRecognizing:
		return "recognizing"
	default:
		return "unknown"
	}
}

// EventType identifies different controller events.
type EventType int

const (
	EventStateChanged   EventType = iota // data: State
	EventResultChanged                   // data: string
	EventTextChanged                     // data: string
	EventSurfaceChanged                  // data: nil
	EventRecognized                      // data: Outcome
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type event struct {
	typ  EventType
	data interface{}
}

type listeners struct {
	mu sync.RWMutex
	m  map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (l *listeners) On(typ EventType, listener EventListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[EventType][]EventListener)
	}
	l.m[typ] = append(l.m[typ], listener)
}

// Emit triggers all listeners for the specified event type.
func (l *listeners) Emit(typ EventType, data interface{}) {
	l.mu.RLock()
	list := l.m[typ]
	l.mu.RUnlock()

	for _, listener := range list {
		listener(data)
	}
}

func (l *listeners) emitAll(events []event) {
	for _, ev := range events {
		l.Emit(ev.typ, ev.data)
	}
}
