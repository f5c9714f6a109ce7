package models

import (
	"fmt"
	"strings"
	"time"
)

// AssignmentStatus represents the lifecycle of a section assignment.
type AssignmentStatus string

// Possible assignment statuses.
const (
	AssignmentStatusActive  AssignmentStatus = "ACTIVE"
	AssignmentStatusRemoved AssignmentStatus = "REMOVED"
)

// Assignment places a student into a block section for a semester and school
// year. A student holds at most one ACTIVE assignment per (group, semester,
// school year).
type Assignment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	GroupID    string           `db:"group_id" json:"group_id"`
	Semester   Semester         `db:"semester" json:"semester"`
	SchoolYear int              `db:"school_year" json:"school_year"`
	Status     AssignmentStatus `db:"status" json:"status"`
	AssignedAt time.Time        `db:"assigned_at" json:"assigned_at"`
	RemovedAt  *time.Time       `db:"removed_at" json:"removed_at,omitempty"`
}

// RosterEntry is a student row on a section roster.
type RosterEntry struct {
	Student
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	AssignedAt   time.Time `db:"assigned_at" json:"assigned_at"`
}

// OutcomeStatus discriminates the assignment outcome union.
type OutcomeStatus string

// Possible outcome statuses.
const (
	OutcomeAssigned     OutcomeStatus = "ASSIGNED"
	OutcomeOverCapacity OutcomeStatus = "OVER_CAPACITY"
)

// SectionSnapshot is the capacity picture of a section at decision time.
type SectionSnapshot struct {
	ID                string `json:"id"`
	SectionCode       string `json:"section_code"`
	Capacity          int    `json:"capacity"`
	CurrentPopulation int    `json:"current_population"`
}

// Snapshot freezes the section's capacity figures.
func (s BlockSection) Snapshot() SectionSnapshot {
	return SectionSnapshot{
		ID:                s.ID,
		SectionCode:       s.SectionCode,
		Capacity:          s.Capacity,
		CurrentPopulation: s.CurrentPopulation,
	}
}

// SuggestedSection is an alternative placement offered with an overcapacity
// signal, carrying its derived free-slot count.
type SuggestedSection struct {
	ID             string `json:"id"`
	SectionCode    string `json:"section_code"`
	AvailableSlots int    `json:"available_slots"`
}

// AssignmentOutcome is the result of an assignment attempt. Status is the
// discriminant: ASSIGNED populates Assignment and Section; OVER_CAPACITY
// populates Section, ProjectedPopulation, AllowedActions, SuggestedSections
// and, for single-student attempts, ResolutionID. Overcapacity is an expected
// outcome, not an error.
type AssignmentOutcome struct {
	Status              OutcomeStatus      `json:"status"`
	Assignment          *Assignment        `json:"assignment,omitempty"`
	Section             *SectionSnapshot   `json:"section,omitempty"`
	ProjectedPopulation int                `json:"projected_population,omitempty"`
	AllowedActions      []ResolutionAction `json:"allowed_actions,omitempty"`
	SuggestedSections   []SuggestedSection `json:"suggested_sections,omitempty"`
	ResolutionID        string             `json:"resolution_id,omitempty"`
}

// NewAssignedOutcome builds the success variant.
func NewAssignedOutcome(assignment Assignment, section BlockSection) AssignmentOutcome {
	snapshot := section.Snapshot()
	return AssignmentOutcome{
		Status:     OutcomeAssigned,
		Assignment: &assignment,
		Section:    &snapshot,
	}
}

// NewOverCapacityOutcome builds the overcapacity variant.
func NewOverCapacityOutcome(section BlockSection, projected int, actions []ResolutionAction, suggestions []SuggestedSection) AssignmentOutcome {
	snapshot := section.Snapshot()
	return AssignmentOutcome{
		Status:              OutcomeOverCapacity,
		Section:             &snapshot,
		ProjectedPopulation: projected,
		AllowedActions:      actions,
		SuggestedSections:   suggestions,
	}
}

// BatchFailureKind classifies a failed batch member.
type BatchFailureKind string

// Possible batch failure kinds.
const (
	BatchFailureOverCapacity  BatchFailureKind = "OVER_CAPACITY"
	BatchFailureDuplicate     BatchFailureKind = "DUPLICATE"
	BatchFailureNotAssignable BatchFailureKind = "NOT_ASSIGNABLE"
	BatchFailureError         BatchFailureKind = "ERROR"
)

// BatchFailure names one batch member that was not assigned and why.
type BatchFailure struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"`
	Kind        BatchFailureKind `json:"kind"`
	Message     string           `json:"message"`
}

// BatchAssignSummary reports a batch attempt: members are attempted
// independently in submission order, so successes and failures coexist.
type BatchAssignSummary struct {
	Requested int              `json:"requested"`
	Assigned  []string         `json:"assigned"`
	Failures  []BatchFailure   `json:"failures"`
	Section   *SectionSnapshot `json:"section,omitempty"`
}

// Message renders the combined human-readable summary line, e.g.
// "1 assigned; overcapacity for: Reyes, Santos".
func (s BatchAssignSummary) Message() string {
	parts := []string{fmt.Sprintf("%d assigned", len(s.Assigned))}
	kinds := []struct {
		kind  BatchFailureKind
		label string
	}{
		{BatchFailureOverCapacity, "overcapacity for"},
		{BatchFailureDuplicate, "already assigned"},
		{BatchFailureNotAssignable, "not assignable"},
		{BatchFailureError, "failed"},
	}
	for _, entry := range kinds {
		var names []string
		for _, failure := range s.Failures {
			if failure.Kind != entry.kind {
				continue
			}
			name := failure.StudentName
			if name == "" {
				name = failure.StudentID
			}
			names = append(names, name)
		}
		if len(names) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", entry.label, strings.Join(names, ", ")))
		}
	}
	return strings.Join(parts, "; ")
}
