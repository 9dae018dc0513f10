package core

import "sync"

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// KeyCode values follow ASCII for printable keys.
type KeyCode uint8

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_CONTROL   KeyCode = 0x11
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_PAGEUP    KeyCode = 0x21
	KEY_PAGEDOWN  KeyCode = 0x22
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_0         KeyCode = '0'
	KEY_9         KeyCode = '9'
	KEY_A         KeyCode = 'A'
	KEY_B         KeyCode = 'B'
	KEY_D         KeyCode = 'D'
	KEY_E         KeyCode = 'E'
	KEY_L         KeyCode = 'L'
	KEY_Q         KeyCode = 'Q'
	KEY_R         KeyCode = 'R'
	KEY_S         KeyCode = 'S'
	KEY_W         KeyCode = 'W'
	KEY_Z         KeyCode = 'Z'
	KEY_F1        KeyCode = 0x70
	KEY_F12       KeyCode = 0x7B
)

type MouseState struct {
	X       uint16
	Y       uint16
	Buttons [BUTTON_MAX_BUTTONS]bool
}

type KeyboardState struct {
	Keys [256]bool
}

// InputState holds this frame's and the previous frame's devices.
type InputState struct {
	mutex            sync.RWMutex
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
}

var inputState *InputState

func InputInitialize() error {
	inputState = &InputState{}
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputState = nil
	return nil
}

// InputUpdate moves the current state into the previous one. Call it once
// per frame after everything that reads input.
func InputUpdate(deltaTime float64) error {
	if inputState == nil {
		return nil
	}
	inputState.mutex.Lock()
	inputState.KeyboardPrevious = inputState.KeyboardCurrent
	inputState.MousePrevious = inputState.MouseCurrent
	inputState.mutex.Unlock()
	return nil
}

func readInput(fn func(s *InputState) bool) bool {
	if inputState == nil {
		return false
	}
	inputState.mutex.RLock()
	defer inputState.mutex.RUnlock()
	return fn(inputState)
}

func InputIsKeyDown(key KeyCode) bool {
	return readInput(func(s *InputState) bool { return s.KeyboardCurrent.Keys[key] })
}

func InputIsKeyUp(key KeyCode) bool {
	return inputState != nil && !InputIsKeyDown(key)
}

func InputWasKeyDown(key KeyCode) bool {
	return readInput(func(s *InputState) bool { return s.KeyboardPrevious.Keys[key] })
}

// InputKeyPressed reports a key that went down this frame.
func InputKeyPressed(key KeyCode) bool {
	return InputIsKeyDown(key) && !InputWasKeyDown(key)
}

func InputIsButtonDown(button Button) bool {
	return readInput(func(s *InputState) bool { return s.MouseCurrent.Buttons[button] })
}

func InputWasButtonDown(button Button) bool {
	return readInput(func(s *InputState) bool { return s.MousePrevious.Buttons[button] })
}

func InputGetMousePosition() (int32, int32) {
	if inputState == nil {
		return 0, 0
	}
	inputState.mutex.RLock()
	defer inputState.mutex.RUnlock()
	return int32(inputState.MouseCurrent.X), int32(inputState.MouseCurrent.Y)
}

func InputGetPreviousMousePosition() (int32, int32) {
	if inputState == nil {
		return 0, 0
	}
	inputState.mutex.RLock()
	defer inputState.mutex.RUnlock()
	return int32(inputState.MousePrevious.X), int32(inputState.MousePrevious.Y)
}

// InputProcessKey records a key change and fires KEY_PRESSED or
// KEY_RELEASED when the state actually changed.
func InputProcessKey(key KeyCode, pressed bool) {
	if inputState == nil {
		return
	}
	inputState.mutex.Lock()
	changed := inputState.KeyboardCurrent.Keys[key] != pressed
	inputState.KeyboardCurrent.Keys[key] = pressed
	inputState.mutex.Unlock()
	if !changed {
		return
	}

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	EventFire(EventContext{Type: code, Data: &KeyEvent{KeyCode: key}})
}

func InputProcessButton(button Button, pressed bool) {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return
	}
	inputState.mutex.Lock()
	changed := inputState.MouseCurrent.Buttons[button] != pressed
	inputState.MouseCurrent.Buttons[button] = pressed
	inputState.mutex.Unlock()
	if !changed {
		return
	}

	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	EventFire(EventContext{Type: code, Data: &MouseEvent{Button: button}})
}

func InputProcessMouseMove(x, y uint16) {
	if inputState == nil {
		return
	}
	inputState.mutex.Lock()
	changed := inputState.MouseCurrent.X != x || inputState.MouseCurrent.Y != y
	inputState.MouseCurrent.X = x
	inputState.MouseCurrent.Y = y
	inputState.mutex.Unlock()
	if !changed {
		return
	}
	EventFire(EventContext{Type: EVENT_CODE_MOUSE_MOVED, Data: &MouseEvent{PosX: x, PosY: y}})
}

func InputProcessMouseWheel(zDelta int8) {
	EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL, Data: &MouseEvent{Scroll: zDelta}})
}
