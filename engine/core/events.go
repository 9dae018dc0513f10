package core

import "sync"

// System event codes. Applications should use codes beyond MAX_EVENT_CODE.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = iota + 1
	// Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED
	// Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED
	// Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED
	// Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED
	// Data is *MouseEvent with PosX and PosY set.
	EVENT_CODE_MOUSE_MOVED
	// Data is *MouseEvent with Scroll set.
	EVENT_CODE_MOUSE_WHEEL
	// The framebuffer size changed. Data is *SystemEvent.
	EVENT_CODE_RESIZED
	// A file under the asset root changed on disk. Data is *AssetEvent.
	EVENT_CODE_ASSET_CHANGED

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	// Path relative to the asset root.
	Path string
}

// FnOnEvent returns true when the event was handled; later listeners don't
// see it.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	id       uint32
	callback FnOnEvent
}

type eventSystemState struct {
	mutex      sync.RWMutex
	nextID     uint32
	registered map[EventCode][]registeredEvent
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]registeredEvent),
	}
	return true
}

func EventSystemShutdown() error {
	eventState = nil
	return nil
}

// EventRegister adds a listener for code and returns its id, 0 when the
// event system is not running.
func EventRegister(code EventCode, onEvent FnOnEvent) uint32 {
	if eventState == nil || onEvent == nil {
		return 0
	}
	eventState.mutex.Lock()
	defer eventState.mutex.Unlock()

	eventState.nextID++
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		id:       eventState.nextID,
		callback: onEvent,
	})
	return eventState.nextID
}

func EventUnregister(code EventCode, id uint32) bool {
	if eventState == nil {
		return false
	}
	eventState.mutex.Lock()
	defer eventState.mutex.Unlock()

	events := eventState.registered[code]
	for i, e := range events {
		if e.id == id {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire calls the listeners of context.Type in registration order on the
// calling goroutine until one of them handles it.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mutex.RLock()
	events := append([]registeredEvent(nil), eventState.registered[context.Type]...)
	eventState.mutex.RUnlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}
