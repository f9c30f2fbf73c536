package session

// SeatID identifies a wl_seat by its registry name.
type SeatID uint32

// Capability is the wl_seat capability bitmask.
type Capability uint32

const (
	CapPointer  Capability = 1
	CapKeyboard Capability = 2
)

// SeatChange tells the connection which devices to create or release after
// a capabilities event.
type SeatChange struct {
	GetKeyboard     bool
	ReleaseKeyboard bool
	GetPointer      bool
	ReleasePointer  bool
}

type seatObject struct {
	id       SeatID
	keyboard bool
	pointer  bool
}

// Seats decides which seat supplies the keyboard and the pointer. The first
// seat to offer each wins; a device is released when its seat loses the
// capability, and another seat may then claim it on its next capabilities
// event.
type Seats struct {
	objects []*seatObject
}

func (s *Seats) lookup(id SeatID) *seatObject {
	for _, o := range s.objects {
		if o.id == id {
			return o
		}
	}
	o := &seatObject{id: id}
	s.objects = append(s.objects, o)
	return o
}

func (s *Seats) owner(keyboard bool) *seatObject {
	for _, o := range s.objects {
		if keyboard && o.keyboard || !keyboard && o.pointer {
			return o
		}
	}
	return nil
}

// Update records the capabilities of seat id.
func (s *Seats) Update(id SeatID, caps Capability) SeatChange {
	o := s.lookup(id)
	var ch SeatChange

	switch hasKb := caps&CapKeyboard != 0; {
	case hasKb && !o.keyboard && s.owner(true) == nil:
		o.keyboard = true
		ch.GetKeyboard = true
	case !hasKb && o.keyboard:
		o.keyboard = false
		ch.ReleaseKeyboard = true
	}

	switch hasPtr := caps&CapPointer != 0; {
	case hasPtr && !o.pointer && s.owner(false) == nil:
		o.pointer = true
		ch.GetPointer = true
	case !hasPtr && o.pointer:
		o.pointer = false
		ch.ReleasePointer = true
	}
	return ch
}

// Remove forgets a seat whose global went away and reports which of its
// devices must be released.
func (s *Seats) Remove(id SeatID) SeatChange {
	for i, o := range s.objects {
		if o.id == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return SeatChange{ReleaseKeyboard: o.keyboard, ReleasePointer: o.pointer}
		}
	}
	return SeatChange{}
}

// HasKeyboard reports whether some seat supplies the keyboard.
func (s *Seats) HasKeyboard() bool { return s.owner(true) != nil }

// HasPointer reports whether some seat supplies the pointer.
func (s *Seats) HasPointer() bool { return s.owner(false) != nil }
