package session

// State is the externally observable phase of a session. It is derived from the
// stored pair and in-memory activity, never persisted.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
