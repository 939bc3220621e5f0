package nav

import "github.com/banshee-data/position.report/internal/indicator"

// State identifies the navigation state machine's current state.
type State int

const (
	// StateIdle means no target is set.
	StateIdle State = iota
	// StateNavigating means a target is set and being tracked.
	StateNavigating
	// StateReached means the target was reached and the unit is holding
	// through the cooldown window.
	StateReached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StateReached:
		return "reached"
	default:
		return "unknown"
	}
}

// Event is the outcome of one arrival evaluation.
type Event int

const (
	// EventNone means no transition occurred.
	EventNone Event = iota
	// EventReached fires exactly once per target, on arrival.
	EventReached
	// EventCompleted fires when the post-arrival hold expires.
	EventCompleted
)

// Reached targets light the indicator solid red until the hold expires.
const (
	reachedR, reachedG, reachedB = 255, 0, 0
)

// Machine tracks the active navigation target through
// idle -> navigating -> reached -> idle.
//
// Machine is not safe for concurrent use; the control loop is its only
// caller.
type Machine struct {
	thresholdM float64
	holdMs     int64
	ind        indicator.Indicator
	rearm      func()

	target      Vec3
	hasTarget   bool
	reached     bool
	reachedAtMs int64
}

// NewMachine returns a Machine in the idle state. rearm is invoked on every
// SetTarget so the integrator re-anchors its timer; nil is allowed.
func NewMachine(thresholdM float64, holdMs int64, ind indicator.Indicator, rearm func()) *Machine {
	return &Machine{
		thresholdM: thresholdM,
		holdMs:     holdMs,
		ind:        ind,
		rearm:      rearm,
	}
}

// SetTarget replaces the active target and enters the navigating state.
// Setting a target always succeeds, from any state: a retarget during the
// cooldown hold abandons the hold immediately. The indicator is left as-is;
// it changes only on arrival and on hold expiry.
func (m *Machine) SetTarget(t Vec3) {
	m.target = t
	m.hasTarget = true
	m.reached = false
	if m.rearm != nil {
		m.rearm()
	}
}

// Evaluate advances the state machine against the current position.
// nowMs is a monotonic millisecond reading from the same clock that
// timestamps telemetry.
func (m *Machine) Evaluate(pos Vec3, nowMs int64) Event {
	if !m.hasTarget {
		return EventNone
	}

	if !m.reached {
		if Distance(pos, m.target) <= m.thresholdM {
			m.reached = true
			m.reachedAtMs = nowMs
			m.ind.SetRGB(reachedR, reachedG, reachedB)
			return EventReached
		}
		return EventNone
	}

	// Holding after arrival. The target stays present until the hold
	// expires so a stale completion can never fire against a fresh target.
	if nowMs-m.reachedAtMs >= m.holdMs {
		m.ind.SetRGB(0, 0, 0)
		m.hasTarget = false
		m.reached = false
		return EventCompleted
	}
	return EventNone
}

// State returns the machine's current state.
func (m *Machine) State() State {
	switch {
	case !m.hasTarget:
		return StateIdle
	case m.reached:
		return StateReached
	default:
		return StateNavigating
	}
}

// Tracking reports whether the unit is actively navigating toward a target.
// Integration and the telemetry distance field are both gated on this.
func (m *Machine) Tracking() bool {
	return m.hasTarget && !m.reached
}

// Target returns the active target, if any.
func (m *Machine) Target() (Vec3, bool) {
	return m.target, m.hasTarget
}

// DistanceTo returns the distance from pos to the active target, if any.
func (m *Machine) DistanceTo(pos Vec3) (float64, bool) {
	if !m.hasTarget {
		return 0, false
	}
	return Distance(pos, m.target), true
}
