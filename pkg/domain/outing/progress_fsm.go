package outing

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State ids for statekit. They must stay equal to the ProgressState values.
const (
	StateNotStarted = "not_started"
	StateEnRoute    = "en_route"
	StateCheckedIn  = "checked_in"
	StateCompleted  = "completed"
)

func init() {
	stateMap := map[string]ProgressState{
		StateNotStarted: ProgressNotStarted,
		StateEnRoute:    ProgressEnRoute,
		StateCheckedIn:  ProgressCheckedIn,
		StateCompleted:  ProgressCompleted,
	}
	for fsmState, progress := range stateMap {
		if fsmState != string(progress) {
			panic(fmt.Sprintf("FSM state %q does not match ProgressState %q", fsmState, progress))
		}
	}
}

// ProgressContext carries the plan id and the guard consulted on check-in.
type ProgressContext struct {
	PlanID string
	Guard  func(planID, event string) bool
}

// ProgressMachine drives a plan through not_started -> en_route ->
// checked_in -> (en_route | completed).
type ProgressMachine struct {
	planID      string
	interpreter *statekit.Interpreter[ProgressContext]
}

// NewProgressMachine builds a machine positioned at the given state. A nil
// guard admits every check-in.
func NewProgressMachine(initial ProgressState, planID string, guard func(string, string) bool) (*ProgressMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("unknown progress state %q", initial)
	}
	if guard == nil {
		guard = func(string, string) bool { return true }
	}

	builder := statekit.NewMachine[ProgressContext]("plan-progress").
		WithInitial(statekit.StateID(initial)).
		WithContext(ProgressContext{
			PlanID: planID,
			Guard:  guard,
		}).
		WithGuard("targetsCurrentStop", func(ctx ProgressContext, e statekit.Event) bool {
			return ctx.Guard(ctx.PlanID, string(e.Type))
		})

	builder.State(StateNotStarted).
		On(EventStartPlan).Target(StateEnRoute).
		On(EventEndPlan).Target(StateCompleted).
		Done()

	builder.State(StateEnRoute).
		On(EventCheckIn).Target(StateCheckedIn).Guard("targetsCurrentStop").
		On(EventEndPlan).Target(StateCompleted).
		Done()

	builder.State(StateCheckedIn).
		On(EventAdvance).Target(StateEnRoute).
		On(EventFinish).Target(StateCompleted).
		On(EventEndPlan).Target(StateCompleted).
		Done()

	builder.State(StateCompleted).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build progress machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &ProgressMachine{planID: planID, interpreter: interpreter}, nil
}

// Fire sends an event. When the state does not move, the event was either
// not valid from the current state or rejected by the guard.
func (m *ProgressMachine) Fire(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() != before {
		return nil
	}

	reason := ""
	if before.CanTransitionWith(event) {
		reason = "guard rejected the event"
	}
	return &TransitionError{PlanID: m.planID, From: before, Event: event, Reason: reason}
}

// Current returns the machine's state.
func (m *ProgressMachine) Current() ProgressState {
	return ProgressState(m.interpreter.State().Value)
}

// IsFinal returns true once the plan has completed.
func (m *ProgressMachine) IsFinal() bool {
	return m.Current().IsFinal()
}
