package blockclient

import "time"

// Semester mirrors the server-side semester enum.
type Semester string

const (
	SemesterFirst  Semester = "FIRST"
	SemesterSecond Semester = "SECOND"
	SemesterSummer Semester = "SUMMER"
)

// SectionStatus mirrors the server-side section lifecycle.
type SectionStatus string

const (
	SectionOpen   SectionStatus = "OPEN"
	SectionClosed SectionStatus = "CLOSED"
)

// Group is a block group as served by the directory endpoints.
type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Program    string    `json:"program"`
	YearLevel  int       `json:"year_level"`
	Semester   Semester  `json:"semester"`
	SchoolYear int       `json:"school_year"`
	MaxOvercap int       `json:"max_overcap"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Section is a block section with its live population counters.
type Section struct {
	ID                string        `json:"id"`
	GroupID           string        `json:"group_id"`
	SectionCode       string        `json:"section_code"`
	Capacity          int           `json:"capacity"`
	CurrentPopulation int           `json:"current_population"`
	Status            SectionStatus `json:"status"`
	AvailableSlots    int           `json:"available_slots"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SectionSnapshot is the compact section view embedded in outcomes.
type SectionSnapshot struct {
	ID                string `json:"id"`
	SectionCode       string `json:"section_code"`
	Capacity          int    `json:"capacity"`
	CurrentPopulation int    `json:"current_population"`
}

// Student is an assignable-student row, with the canonical identity fields
// the server derives from raw records.
type Student struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Course          string `json:"course"`
	YearLevel       int    `json:"year_level"`
	Status          string `json:"status"`
	StudentNumber   string `json:"student_number"`
	CanonicalNumber string `json:"canonical_number"`
	ResolvedProgram string `json:"resolved_program"`
}

// RosterEntry is one active roster row of a section.
type RosterEntry struct {
	Student
	AssignmentID string `json:"assignment_id"`
}

// Assignment is a committed student-to-section placement.
type Assignment struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	SectionID  string     `json:"section_id"`
	GroupID    string     `json:"group_id"`
	Semester   Semester   `json:"semester"`
	SchoolYear int        `json:"school_year"`
	Status     string     `json:"status"`
	AssignedAt time.Time  `json:"assigned_at"`
	RemovedAt  *time.Time `json:"removed_at,omitempty"`
}

// OutcomeStatus discriminates the assignment outcome union.
type OutcomeStatus string

const (
	OutcomeAssigned     OutcomeStatus = "ASSIGNED"
	OutcomeOverCapacity OutcomeStatus = "OVER_CAPACITY"
)

// ResolutionAction enumerates the staff decisions against an overcapacity
// signal.
type ResolutionAction string

const (
	ActionTransfer         ResolutionAction = "TRANSFER"
	ActionOverride         ResolutionAction = "OVERRIDE"
	ActionIncreaseCapacity ResolutionAction = "INCREASE_CAPACITY"
	ActionCloseSection     ResolutionAction = "CLOSE_SECTION"
)

// SuggestedSection is an open sibling section offered as a transfer target.
type SuggestedSection struct {
	ID             string `json:"id"`
	SectionCode    string `json:"section_code"`
	AvailableSlots int    `json:"available_slots"`
}

// AssignmentOutcome is the tagged result of an assignment attempt. Status
// selects which fields are populated: ASSIGNED carries Assignment and
// Section; OVER_CAPACITY carries the resolution context instead.
type AssignmentOutcome struct {
	Status              OutcomeStatus      `json:"status"`
	Assignment          *Assignment        `json:"assignment,omitempty"`
	Section             *SectionSnapshot   `json:"section,omitempty"`
	ProjectedPopulation int                `json:"projected_population,omitempty"`
	AllowedActions      []ResolutionAction `json:"allowed_actions,omitempty"`
	SuggestedSections   []SuggestedSection `json:"suggested_sections,omitempty"`
	ResolutionID        string             `json:"resolution_id,omitempty"`
}

// BatchFailure describes one student the batch could not place.
type BatchFailure struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

// BatchSummary is the multi-status result of a batch assignment.
type BatchSummary struct {
	Requested int              `json:"requested"`
	Assigned  []string         `json:"assigned"`
	Failures  []BatchFailure   `json:"failures"`
	Section   *SectionSnapshot `json:"section,omitempty"`
}

// ResolutionStatus is the lifecycle of a resolution session.
type ResolutionStatus string

const (
	ResolutionPending   ResolutionStatus = "PENDING"
	ResolutionResolved  ResolutionStatus = "RESOLVED"
	ResolutionCancelled ResolutionStatus = "CANCELLED"
)

// ResolutionSession is the server-held pending overcapacity session.
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

// DecisionResult is the applied outcome of a resolution decision.
type DecisionResult struct {
	SessionID  string           `json:"session_id"`
	Action     ResolutionAction `json:"action"`
	Assignment *Assignment      `json:"assignment,omitempty"`
	Section    *SectionSnapshot `json:"section,omitempty"`
	Target     *SectionSnapshot `json:"target,omitempty"`
	Message    string           `json:"message"`
}

// GroupSummary aggregates utilization across a group's sections.
type GroupSummary struct {
	GroupID         string `json:"group_id"`
	Name            string `json:"name"`
	SectionCount    int    `json:"section_count"`
	OpenSections    int    `json:"open_sections"`
	TotalCapacity   int    `json:"total_capacity"`
	TotalPopulation int    `json:"total_population"`
	RemainingSlots  int    `json:"remaining_slots"`
}

// ExportResult carries the signed download handle for a rendered roster.
type ExportResult struct {
	RelativePath string    `json:"relative_path"`
	Token        string    `json:"token"`
	URL          string    `json:"url"`
	Format       string    `json:"format"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Pagination echoes the server's list metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CreateSectionRequest creates one section within a group.
type CreateSectionRequest struct {
	Letter   string `json:"letter"`
	Capacity int    `json:"capacity"`
}

// CreateGroupRequest creates a block group with its first section.
type CreateGroupRequest struct {
	Program        string               `json:"program"`
	YearLevel      int                  `json:"year_level"`
	Semester       Semester             `json:"semester"`
	SchoolYear     int                  `json:"school_year"`
	MaxOvercap     int                  `json:"max_overcap,omitempty"`
	InitialSection CreateSectionRequest `json:"initial_section"`
}

// AssignRequest places one student into a section.
type AssignRequest struct {
	StudentID  string   `json:"student_id"`
	SectionID  string   `json:"section_id"`
	Semester   Semester `json:"semester"`
	SchoolYear int      `json:"school_year"`
}

// AssignBatchRequest places several students into one section.
type AssignBatchRequest struct {
	StudentIDs []string `json:"student_ids"`
	SectionID  string   `json:"section_id"`
	Semester   Semester `json:"semester"`
	SchoolYear int      `json:"school_year"`
}

// DecisionRequest applies one resolution action to a pending session.
type DecisionRequest struct {
	ResolutionID    string           `json:"resolution_id"`
	Action          ResolutionAction `json:"action"`
	Reason          string           `json:"reason,omitempty"`
	TargetSectionID string           `json:"target_section_id,omitempty"`
	NewCapacity     int              `json:"new_capacity,omitempty"`
}

// GroupFilter narrows the group listing.
type GroupFilter struct {
	Program    string
	Semester   Semester
	SchoolYear int
	Page       int
	Limit      int
}

// AssignableQuery narrows the assignable-student listing.
type AssignableQuery struct {
	GroupID    string
	Semester   Semester
	SchoolYear int
	Query      string
	Page       int
	Limit      int
}
