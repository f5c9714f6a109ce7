package blockclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionClientMock struct {
	result     *DecisionResult
	decideErr  error
	requests   []DecisionRequest
	cancelErr  error
	cancelled  []string
	decideHook func()
}

func (m *decisionClientMock) Decide(ctx context.Context, req DecisionRequest) (*DecisionResult, error) {
	m.requests = append(m.requests, req)
	if m.decideHook != nil {
		m.decideHook()
	}
	return m.result, m.decideErr
}

func (m *decisionClientMock) CancelResolution(ctx context.Context, resolutionID string) error {
	m.cancelled = append(m.cancelled, resolutionID)
	return m.cancelErr
}

func overcapSignal() AssignmentOutcome {
	return AssignmentOutcome{
		Status:              OutcomeOverCapacity,
		Section:             &SectionSnapshot{ID: "secA", SectionCode: "103-1A", Capacity: 40, CurrentPopulation: 40},
		ProjectedPopulation: 41,
		AllowedActions:      []ResolutionAction{ActionTransfer, ActionOverride, ActionIncreaseCapacity},
		SuggestedSections:   []SuggestedSection{{ID: "secB", SectionCode: "103-1B", AvailableSlots: 3}},
		ResolutionID:        "res-1",
	}
}

func TestControllerOpenRequiresOvercapacitySignal(t *testing.T) {
	rc := NewResolutionController(&decisionClientMock{})

	err := rc.Open(AssignmentOutcome{Status: OutcomeAssigned})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, StateIdle, rc.State())

	err = rc.Open(AssignmentOutcome{Status: OutcomeOverCapacity})
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "resolution_id", vErr.Field)

	require.NoError(t, rc.Open(overcapSignal()))
	assert.Equal(t, StateAwaitingDecision, rc.State())
	assert.Equal(t, "res-1", rc.ResolutionID())
}

func TestControllerSubmitTransfer(t *testing.T) {
	client := &decisionClientMock{result: &DecisionResult{SessionID: "res-1", Action: ActionTransfer}}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))

	require.NoError(t, rc.Choose(ActionTransfer))
	rc.SetTargetSection("secB")

	result, err := rc.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "res-1", result.SessionID)
	assert.Equal(t, StateResolved, rc.State())
	require.Len(t, client.requests, 1)
	assert.Equal(t, "secB", client.requests[0].TargetSectionID)
	assert.Equal(t, "res-1", client.requests[0].ResolutionID)
}

func TestControllerLocalValidationMakesNoRequest(t *testing.T) {
	client := &decisionClientMock{}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))
	require.NoError(t, rc.Choose(ActionTransfer))

	// No target chosen yet.
	_, err := rc.Submit(context.Background())
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "target_section_id", vErr.Field)

	// Target outside the suggestions.
	rc.SetTargetSection("secZ")
	_, err = rc.Submit(context.Background())
	require.True(t, errors.As(err, &vErr))

	assert.Empty(t, client.requests)
	assert.Equal(t, StateAwaitingDecision, rc.State())
}

func TestControllerIncreaseCapacityFloors(t *testing.T) {
	client := &decisionClientMock{result: &DecisionResult{SessionID: "res-1", Action: ActionIncreaseCapacity}}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))
	require.NoError(t, rc.Choose(ActionIncreaseCapacity))
	rc.SetReason("approved expansion")

	var vErr *ValidationError

	// Below the current capacity.
	rc.SetNewCapacity(39)
	_, err := rc.Submit(context.Background())
	require.True(t, errors.As(err, &vErr))

	// Below the projected population.
	rc.SetNewCapacity(40)
	_, err = rc.Submit(context.Background())
	require.True(t, errors.As(err, &vErr))
	assert.Empty(t, client.requests)

	rc.SetNewCapacity(41)
	_, err = rc.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	assert.Equal(t, 41, client.requests[0].NewCapacity)
}

func TestControllerChooseClearsCrossActionFields(t *testing.T) {
	client := &decisionClientMock{result: &DecisionResult{}}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))

	require.NoError(t, rc.Choose(ActionTransfer))
	rc.SetTargetSection("secB")

	// Switching to OVERRIDE drops the transfer target, so the stale field
	// cannot leak into the next request.
	require.NoError(t, rc.Choose(ActionOverride))
	rc.SetReason("dean approval")

	_, err := rc.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	assert.Empty(t, client.requests[0].TargetSectionID)
	assert.Equal(t, ActionOverride, client.requests[0].Action)
}

func TestControllerChooseRejectsUnofferedAction(t *testing.T) {
	rc := NewResolutionController(&decisionClientMock{})
	require.NoError(t, rc.Open(overcapSignal()))

	err := rc.Choose(ActionCloseSection)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "action", vErr.Field)
}

func TestControllerFailedSubmitKeepsFields(t *testing.T) {
	client := &decisionClientMock{decideErr: &Error{Status: 409, Code: "CONFLICT", Message: "target section no longer has a free slot"}}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))
	require.NoError(t, rc.Choose(ActionTransfer))
	rc.SetTargetSection("secB")

	_, err := rc.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateAwaitingDecision, rc.State())

	// The entered target survives; switching the mock to success resubmits
	// the same decision without re-entering fields.
	client.decideErr = nil
	client.result = &DecisionResult{SessionID: "res-1"}
	_, err = rc.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, client.requests, 2)
	assert.Equal(t, client.requests[0], client.requests[1])
}

func TestControllerCancel(t *testing.T) {
	client := &decisionClientMock{}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))

	require.NoError(t, rc.Cancel(context.Background()))
	assert.Equal(t, []string{"res-1"}, client.cancelled)
	assert.Equal(t, StateIdle, rc.State())

	// Cancelling an idle controller is a no-op, no extra request.
	require.NoError(t, rc.Cancel(context.Background()))
	assert.Len(t, client.cancelled, 1)
}

func TestControllerReopensAfterResolve(t *testing.T) {
	client := &decisionClientMock{result: &DecisionResult{}}
	rc := NewResolutionController(client)
	require.NoError(t, rc.Open(overcapSignal()))
	require.NoError(t, rc.Choose(ActionOverride))
	rc.SetReason("dean approval")
	_, err := rc.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateResolved, rc.State())

	next := overcapSignal()
	next.ResolutionID = "res-2"
	require.NoError(t, rc.Open(next))
	assert.Equal(t, "res-2", rc.ResolutionID())
}
