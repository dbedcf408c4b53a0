package domain

// Mode is the interaction mode gating how a user's free text is interpreted.
type Mode int

const (
	ModeInactive Mode = iota
	ModeMainMenu
	ModeChat
	ModeSearch
	ModeImage
	ModeCommand
)

func (m Mode) String() string {
	switch m {
	case ModeMainMenu:
		return "menu"
	case ModeChat:
		return "chat"
	case ModeSearch:
		return "search"
	case ModeImage:
		return "image"
	case ModeCommand:
		return "command"
	}
	return "inactive"
}

// Active reports whether the mode accepts free-text input.
func (m Mode) Active() bool {
	return m != ModeInactive
}

// Session is a user's in-memory conversational state. It is owned by the
// controller loop; nothing else mutates it.
type Session struct {
	UserID      int64
	Mode        Mode
	Model       string
	ImageModel  string
	AspectRatio string
	Resolution  string

	// Busy is set while a generation for this user is in flight.
	Busy bool
}
