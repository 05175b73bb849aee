package pipe

// State of the pipeline.
type State int

// Pipeline states.
const (
	// Null means that pipeline is closed.
	Null State = iota
	// Ready means that pipeline is built and can be started.
	Ready
	// Paused means that pipeline was stopped and can be started again.
	Paused
	// Playing means that pipeline is processing data.
	Playing
)

func (s State) String() string {
	switch s {
	case Null:
		return "null"
	case Ready:
		return "ready"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// StateFunc is called when pipeline changes its state. Err is not nil if
// the state was changed because of failure.
type StateFunc func(s State, err error)
