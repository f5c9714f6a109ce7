package blockclient

import (
	"context"
	"fmt"
	"sync"
)

// ControllerState is the phase of a resolution controller. There is no
// distinct failed phase: a failed submission surfaces its error from Submit
// and lands back in AWAITING_DECISION with the entered fields intact, so the
// staff member can retry or change the action without re-entering anything.
type ControllerState string

const (
	StateIdle             ControllerState = "IDLE"
	StateAwaitingDecision ControllerState = "AWAITING_DECISION"
	StateSubmitting       ControllerState = "SUBMITTING"
	StateResolved         ControllerState = "RESOLVED"
)

// decisionClient is the slice of Client the controller needs.
type decisionClient interface {
	Decide(ctx context.Context, req DecisionRequest) (*DecisionResult, error)
	CancelResolution(ctx context.Context, resolutionID string) error
}

// ValidationError is a locally detected decision problem. No request was
// sent when one of these is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ResolutionController drives one overcapacity resolution from the staff
// side. It moves Idle → AwaitingDecision → Submitting → Resolved; a failed
// submission drops back to AwaitingDecision with the entered fields intact.
// Exactly one decision request is issued per Submit call, and only after
// local validation passes.
type ResolutionController struct {
	mu     sync.Mutex
	client decisionClient

	state  ControllerState
	signal AssignmentOutcome

	action          ResolutionAction
	reason          string
	targetSectionID string
	newCapacity     int
}

// NewResolutionController builds an idle controller on top of a client.
func NewResolutionController(client decisionClient) *ResolutionController {
	return &ResolutionController{client: client, state: StateIdle}
}

// State reports the current phase.
func (rc *ResolutionController) State() ControllerState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// ResolutionID reports the session the controller is working, if any.
func (rc *ResolutionController) ResolutionID() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.signal.ResolutionID
}

// Open starts a resolution from a single-assignment overcapacity outcome.
// Only OVER_CAPACITY outcomes carrying a resolution ID open a session; batch
// failures never reach here because the server does not open sessions for
// them.
func (rc *ResolutionController) Open(outcome AssignmentOutcome) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state != StateIdle && rc.state != StateResolved {
		return fmt.Errorf("cannot open resolution while %s", rc.state)
	}
	if outcome.Status != OutcomeOverCapacity {
		return &ValidationError{Field: "status", Message: "outcome is not an overcapacity signal"}
	}
	if outcome.ResolutionID == "" {
		return &ValidationError{Field: "resolution_id", Message: "outcome carries no resolution session"}
	}

	rc.signal = outcome
	rc.action = ""
	rc.reason = ""
	rc.targetSectionID = ""
	rc.newCapacity = 0
	rc.state = StateAwaitingDecision
	return nil
}

// Choose selects an action. Selecting a different action than before clears
// the fields entered for the previous one, so stale cross-action fields can
// never reach the server.
func (rc *ResolutionController) Choose(action ResolutionAction) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state != StateAwaitingDecision {
		return fmt.Errorf("cannot choose an action while %s", rc.state)
	}
	if !rc.actionAllowed(action) {
		return &ValidationError{Field: "action", Message: fmt.Sprintf("action %s is not allowed for this session", action)}
	}
	if rc.action != action {
		rc.reason = ""
		rc.targetSectionID = ""
		rc.newCapacity = 0
	}
	rc.action = action
	return nil
}

// SetReason records the justification for the chosen action.
func (rc *ResolutionController) SetReason(reason string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.reason = reason
}

// SetTargetSection records the transfer target.
func (rc *ResolutionController) SetTargetSection(sectionID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.targetSectionID = sectionID
}

// SetNewCapacity records the raised capacity for INCREASE_CAPACITY.
func (rc *ResolutionController) SetNewCapacity(capacity int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.newCapacity = capacity
}

// Submit validates the entered decision locally, issues exactly one decision
// request, and transitions per the result. A validation failure makes no
// network call and the controller stays AwaitingDecision.
func (rc *ResolutionController) Submit(ctx context.Context) (*DecisionResult, error) {
	rc.mu.Lock()
	if rc.state != StateAwaitingDecision {
		rc.mu.Unlock()
		return nil, fmt.Errorf("cannot submit while %s", rc.state)
	}
	if err := rc.validate(); err != nil {
		rc.mu.Unlock()
		return nil, err
	}

	req := DecisionRequest{
		ResolutionID:    rc.signal.ResolutionID,
		Action:          rc.action,
		Reason:          rc.reason,
		TargetSectionID: rc.targetSectionID,
		NewCapacity:     rc.newCapacity,
	}
	rc.state = StateSubmitting
	rc.mu.Unlock()

	result, err := rc.client.Decide(ctx, req)

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if err != nil {
		// Entered fields survive so staff can correct and resubmit.
		rc.state = StateAwaitingDecision
		return nil, err
	}

	rc.state = StateResolved
	rc.signal = AssignmentOutcome{}
	rc.action = ""
	rc.reason = ""
	rc.targetSectionID = ""
	rc.newCapacity = 0
	return result, nil
}

// Cancel abandons the pending session. It is refused while a submission is
// in flight.
func (rc *ResolutionController) Cancel(ctx context.Context) error {
	rc.mu.Lock()
	if rc.state == StateSubmitting {
		rc.mu.Unlock()
		return fmt.Errorf("cannot cancel while a decision is submitting")
	}
	if rc.state != StateAwaitingDecision {
		rc.mu.Unlock()
		return nil
	}
	id := rc.signal.ResolutionID
	rc.mu.Unlock()

	if err := rc.client.CancelResolution(ctx, id); err != nil {
		return err
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state = StateIdle
	rc.signal = AssignmentOutcome{}
	rc.action = ""
	rc.reason = ""
	rc.targetSectionID = ""
	rc.newCapacity = 0
	return nil
}

func (rc *ResolutionController) actionAllowed(action ResolutionAction) bool {
	for _, allowed := range rc.signal.AllowedActions {
		if allowed == action {
			return true
		}
	}
	return false
}

// validate mirrors the server's decision rules so an invalid decision never
// costs a round trip. Caller holds rc.mu.
func (rc *ResolutionController) validate() error {
	if rc.action == "" {
		return &ValidationError{Field: "action", Message: "no action chosen"}
	}

	switch rc.action {
	case ActionTransfer:
		if rc.targetSectionID == "" {
			return &ValidationError{Field: "target_section_id", Message: "transfer requires a target section"}
		}
		if !rc.targetSuggested(rc.targetSectionID) {
			return &ValidationError{Field: "target_section_id", Message: "target section is not among the suggested sections"}
		}
		if rc.newCapacity != 0 {
			return &ValidationError{Field: "new_capacity", Message: "new capacity does not apply to a transfer"}
		}
	case ActionOverride:
		if rc.reason == "" {
			return &ValidationError{Field: "reason", Message: "override requires a reason"}
		}
		if rc.targetSectionID != "" {
			return &ValidationError{Field: "target_section_id", Message: "target section does not apply to an override"}
		}
		if rc.newCapacity != 0 {
			return &ValidationError{Field: "new_capacity", Message: "new capacity does not apply to an override"}
		}
	case ActionIncreaseCapacity:
		if rc.reason == "" {
			return &ValidationError{Field: "reason", Message: "capacity increase requires a reason"}
		}
		if rc.targetSectionID != "" {
			return &ValidationError{Field: "target_section_id", Message: "target section does not apply to a capacity increase"}
		}
		if rc.signal.Section != nil {
			if rc.newCapacity < rc.signal.Section.Capacity {
				return &ValidationError{Field: "new_capacity", Message: "new capacity must not be below the current capacity"}
			}
			if rc.newCapacity < rc.signal.ProjectedPopulation {
				return &ValidationError{Field: "new_capacity", Message: "new capacity must cover the projected population"}
			}
		} else if rc.newCapacity <= 0 {
			return &ValidationError{Field: "new_capacity", Message: "new capacity must be positive"}
		}
	case ActionCloseSection:
		if rc.reason == "" {
			return &ValidationError{Field: "reason", Message: "closing a section requires a reason"}
		}
		if rc.targetSectionID != "" {
			return &ValidationError{Field: "target_section_id", Message: "target section does not apply when closing"}
		}
		if rc.newCapacity != 0 {
			return &ValidationError{Field: "new_capacity", Message: "new capacity does not apply when closing"}
		}
	default:
		return &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %s", rc.action)}
	}
	return nil
}

func (rc *ResolutionController) targetSuggested(sectionID string) bool {
	for _, suggestion := range rc.signal.SuggestedSections {
		if suggestion.ID == sectionID {
			return true
		}
	}
	return false
}
