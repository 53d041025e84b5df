package agent

// State is the lifecycle state of an agent.
//
// The only valid transitions are NotStarted -> Running -> Stopped and
// NotStarted -> Stopped.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (m State) String() string {
	switch m {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
