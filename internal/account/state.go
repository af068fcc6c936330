package account

import "github.com/teemow/drivelog/internal/credential"

// State is the authentication state derived from a credential.
type State int

const (
	StateUnauthenticated State = iota
	StateTokenPending
	StateAuthenticated
	StateSessionBound
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateTokenPending:
		return "token_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateSessionBound:
		return "session_bound"
	default:
		return "unknown"
	}
}

// StateOf reports where cred sits in the authentication state machine.
func StateOf(cred credential.Credential) State {
	switch {
	case !cred.HasAccount():
		return StateUnauthenticated
	case !cred.HasToken():
		return StateTokenPending
	case cred.HasSession():
		return StateSessionBound
	default:
		return StateAuthenticated
	}
}
