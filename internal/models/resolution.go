package models

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

// ResolutionAction enumerates the staff decisions available against an
// overcapacity signal.
type ResolutionAction string

// Possible resolution actions.
const (
	ActionTransfer         ResolutionAction = "TRANSFER"
	ActionOverride         ResolutionAction = "OVERRIDE"
	ActionIncreaseCapacity ResolutionAction = "INCREASE_CAPACITY"
	ActionCloseSection     ResolutionAction = "CLOSE_SECTION"
)

// Valid reports whether the action is a known variant.
func (a ResolutionAction) Valid() bool {
	switch a {
	case ActionTransfer, ActionOverride, ActionIncreaseCapacity, ActionCloseSection:
		return true
	default:
		return false
	}
}

// RequiresReason reports whether the action demands a staff justification.
func (a ResolutionAction) RequiresReason() bool {
	switch a {
	case ActionOverride, ActionIncreaseCapacity, ActionCloseSection:
		return true
	default:
		return false
	}
}

// OvercapacityDecision is the transient decision request submitted exactly
// once against a resolution session. Fields belonging to a different action
// than the chosen one must be absent.
type OvercapacityDecision struct {
	Action          ResolutionAction `json:"action"`
	Reason          string           `json:"reason,omitempty"`
	TargetSectionID string           `json:"target_section_id,omitempty"`
	NewCapacity     int              `json:"new_capacity,omitempty"`
}

// ResolutionStatus represents the lifecycle of a resolution session.
type ResolutionStatus string

// Possible resolution session statuses.
const (
	ResolutionStatusPending   ResolutionStatus = "PENDING"
	ResolutionStatusResolved  ResolutionStatus = "RESOLVED"
	ResolutionStatusCancelled ResolutionStatus = "CANCELLED"
)

// ResolutionSession is the short-lived server-side record of an overcapacity
// signal awaiting a staff decision. Sessions accept exactly one committed
// decision, are cancellable only while PENDING, and expire after a TTL.
type ResolutionSession struct {
	ID         string            `json:"id"`
	StudentID  string            `json:"student_id"`
	SectionID  string            `json:"section_id"`
	GroupID    string            `json:"group_id"`
	Semester   Semester          `json:"semester"`
	SchoolYear int               `json:"school_year"`
	Signal     AssignmentOutcome `json:"signal"`
	OpenedBy   string            `json:"opened_by"`
	OpenedAt   time.Time         `json:"opened_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Status     ResolutionStatus  `json:"status"`
}

// AllowsAction reports whether the action was offered by the session's
// overcapacity signal.
func (s ResolutionSession) AllowsAction(action ResolutionAction) bool {
	for _, allowed := range s.Signal.AllowedActions {
		if allowed == action {
			return true
		}
	}
	return false
}

// ValidateDecision checks the decision against the session's overcapacity
// signal before any repository work. Fields belonging to a different action
// than the chosen one are rejected rather than ignored.
func (s ResolutionSession) ValidateDecision(d OvercapacityDecision) *appErrors.Error {
	if !d.Action.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", d.Action))
	}
	if !s.AllowsAction(d.Action) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("action %s is not offered for this overcapacity signal", d.Action))
	}
	if d.Action.RequiresReason() && strings.TrimSpace(d.Reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("action %s requires a reason", d.Action))
	}
	if d.TargetSectionID != "" && d.Action != ActionTransfer {
		return appErrors.Clone(appErrors.ErrValidation, "target_section_id is only valid for TRANSFER")
	}
	if d.NewCapacity != 0 && d.Action != ActionIncreaseCapacity {
		return appErrors.Clone(appErrors.ErrValidation, "new_capacity is only valid for INCREASE_CAPACITY")
	}

	switch d.Action {
	case ActionTransfer:
		if d.TargetSectionID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "TRANSFER requires a target section")
		}
		suggested := false
		for _, section := range s.Signal.SuggestedSections {
			if section.ID == d.TargetSectionID {
				suggested = true
				break
			}
		}
		if !suggested {
			return appErrors.Clone(appErrors.ErrValidation, "target section must be one of the suggested sections")
		}
	case ActionIncreaseCapacity:
		if s.Signal.Section != nil {
			if d.NewCapacity < s.Signal.Section.Capacity {
				return appErrors.Clone(appErrors.ErrValidation, "new capacity must not be below the current capacity")
			}
		}
		if d.NewCapacity < s.Signal.ProjectedPopulation {
			return appErrors.Clone(appErrors.ErrValidation, "new capacity must cover the projected population")
		}
	}
	return nil
}

// DecisionResult reports the effect of a committed decision.
type DecisionResult struct {
	SessionID  string           `json:"session_id"`
	Action     ResolutionAction `json:"action"`
	Assignment *Assignment      `json:"assignment,omitempty"`
	Section    *SectionSnapshot `json:"section,omitempty"`
	Target     *SectionSnapshot `json:"target,omitempty"`
	Message    string           `json:"message"`
}
