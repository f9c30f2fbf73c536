package input

import "fmt"

// ButtonKind names the pointer buttons the overlay knows about.
type ButtonKind uint8

const (
	ButtonLeft ButtonKind = iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
	ButtonOther
)

// Button is a pointer button; Code is the raw evdev code.
type Button struct {
	Kind ButtonKind
	Code uint32
}

func (b Button) String() string {
	switch b.Kind {
	case ButtonLeft:
		return "Left"
	case ButtonRight:
		return "Right"
	case ButtonMiddle:
		return "Middle"
	case ButtonBack:
		return "Back"
	case ButtonForward:
		return "Forward"
	}
	return fmt.Sprintf("Other(%d)", b.Code)
}

// evdev BTN_* codes.
const (
	btnLeft    = 272
	btnRight   = 273
	btnMiddle  = 274
	btnSide    = 275
	btnExtra   = 276
	pressedRaw = 1
)

// ButtonFromCode maps an evdev button code onto a Button.
func ButtonFromCode(code uint32) Button {
	switch code {
	case btnLeft:
		return Button{Kind: ButtonLeft, Code: code}
	case btnRight:
		return Button{Kind: ButtonRight, Code: code}
	case btnMiddle:
		return Button{Kind: ButtonMiddle, Code: code}
	case btnSide:
		return Button{Kind: ButtonBack, Code: code}
	case btnExtra:
		return Button{Kind: ButtonForward, Code: code}
	}
	return Button{Kind: ButtonOther, Code: code}
}

// PointerKind distinguishes pointer events.
type PointerKind uint8

const (
	PointerEntered PointerKind = iota
	PointerLeft
	PointerMoved
	PointerPressed
	PointerReleased
)

// PointerEvent is a pointer event in surface-local coordinates.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   float64
	Button Button
}

// Motion builds a PointerMoved event.
func Motion(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerMoved, X: x, Y: y}
}

// Entered builds a PointerEntered event.
func Entered(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerEntered, X: x, Y: y}
}

// Leave builds a PointerLeft event.
func Leave() PointerEvent {
	return PointerEvent{Kind: PointerLeft}
}

// ButtonEvent builds a press or release from a wl_pointer.button state.
func ButtonEvent(code, state uint32) PointerEvent {
	kind := PointerReleased
	if state == pressedRaw {
		kind = PointerPressed
	}
	return PointerEvent{Kind: kind, Button: ButtonFromCode(code)}
}
