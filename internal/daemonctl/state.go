package daemonctl

import "fmt"

// State is a step of the restart cycle.
type State string

// Event moves the restart cycle between states.
type Event string

const (
	StateCheckingAlive  State = "checking_alive"
	StateNotRunning     State = "not_running"
	StateStopping       State = "stopping"
	StateWaitingForExit State = "waiting_for_exit"
	StatePausing        State = "pausing"
	StateSpawning       State = "spawning"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

const (
	EventAlive         Event = "alive"
	EventNotAlive      Event = "not_alive"
	EventStopped       Event = "stopped"
	EventStoppedNoWait Event = "stopped_no_wait"
	EventStillPresent  Event = "still_present"
	EventExited        Event = "exited"
	EventPauseElapsed  Event = "pause_elapsed"
	EventLaunched      Event = "launched"
	EventFail          Event = "fail"
)

// Transition returns the state that follows current on event.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		switch current {
		case StateNotRunning, StateDone, StateFailed:
			return current, invalidTransition(current, event)
		}
		return StateFailed, nil
	}

	switch current {
	case StateCheckingAlive:
		switch event {
		case EventAlive:
			return StateStopping, nil
		case EventNotAlive:
			return StateNotRunning, nil
		}
	case StateStopping:
		switch event {
		case EventStopped:
			return StateWaitingForExit, nil
		case EventStoppedNoWait:
			return StatePausing, nil
		}
	case StateWaitingForExit:
		switch event {
		case EventStillPresent:
			return StateWaitingForExit, nil
		case EventExited:
			return StateSpawning, nil
		}
	case StatePausing:
		if event == EventPauseElapsed {
			return StateSpawning, nil
		}
	case StateSpawning:
		if event == EventLaunched {
			return StateDone, nil
		}
	case StateNotRunning, StateDone, StateFailed:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, invalidTransition(current, event)
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateNotRunning || s == StateDone || s == StateFailed
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
