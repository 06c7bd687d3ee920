package app

// State represents the current application state.
type State int

const (
	StateLogin   State = iota // Signing in
	StateLoading              // Fetching the board
	StateBoard                // Using or editing the board
	StateForm                 // A form is open over the board
	StateHelp                 // Reading the help screen
)

func (s State) String() string {
	switch s {
	case StateLogin:
		return "login"
	case StateLoading:
		return "loading"
	case StateBoard:
		return "board"
	case StateForm:
		return "form"
	case StateHelp:
		return "help"
	default:
		return "unknown"
	}
}
