package registration

// State is the current step of the signup form.
type State int

const (
	StateIdentity State = iota + 1
	StateContact
	StateAcademic
)

func (s State) String() string {
	switch s {
	case StateIdentity:
		return "identity"
	case StateContact:
		return "contact"
	case StateAcademic:
		return "academic"
	default:
		return "unknown"
	}
}

type Action string

const (
	ActionNext   Action = "next"
	ActionBack   Action = "back"
	ActionSubmit Action = "submit"
)

// transitions lists every legal move. Anything missing is ErrInvalidTransition.
var transitions = map[State]map[Action]State{
	StateIdentity: {
		ActionNext: StateContact,
	},
	StateContact: {
		ActionNext: StateAcademic,
		ActionBack: StateIdentity,
	},
	StateAcademic: {
		ActionBack:   StateContact,
		ActionSubmit: StateIdentity,
	},
}

func nextState(from State, a Action) (State, bool) {
	to, ok := transitions[from][a]
	return to, ok
}
