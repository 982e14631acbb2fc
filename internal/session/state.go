package session

// State is a step of the editing session lifecycle:
//
//	Uninitialized -> Editing -> Exporting -> Committed
//	Uninitialized -> Redirected
//	Exporting -> Editing      (decode/encode failure, canceled export)
//	any -> Closed             (teardown)
type State int

const (
	Uninitialized State = iota
	Editing
	Exporting
	Committed
	Redirected
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Editing:
		return "editing"
	case Exporting:
		return "exporting"
	case Committed:
		return "committed"
	case Redirected:
		return "redirected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Committed || s == Redirected || s == Closed
}

// editable reports whether adjustments and zoom may change.
func (s State) editable() bool {
	return s == Editing || s == Exporting
}
