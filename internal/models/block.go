package models

import (
	"fmt"
	"time"
)

// Semester identifies the academic term a block group belongs to.
type Semester string

// Possible semesters.
const (
	SemesterFirst  Semester = "FIRST"
	SemesterSecond Semester = "SECOND"
	SemesterSummer Semester = "SUMMER"
)

// Valid reports whether the semester is a known variant.
func (s Semester) Valid() bool {
	switch s {
	case SemesterFirst, SemesterSecond, SemesterSummer:
		return true
	default:
		return false
	}
}

// SectionStatus represents the lifecycle of a block section.
type SectionStatus string

// Possible section statuses.
const (
	SectionStatusOpen   SectionStatus = "OPEN"
	SectionStatusClosed SectionStatus = "CLOSED"
)

// Valid reports whether the status is a known variant.
func (s SectionStatus) Valid() bool {
	return s == SectionStatusOpen || s == SectionStatusClosed
}

// BlockGroup is a program + year-level grouping of sections within a
// semester and school year. Its name is derived from the program code and
// year level ("103-1") and is immutable once sections reference the group.
type BlockGroup struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Program    Program   `db:"program" json:"program"`
	YearLevel  int       `db:"year_level" json:"year_level"`
	Semester   Semester  `db:"semester" json:"semester"`
	SchoolYear int       `db:"school_year" json:"school_year"`
	MaxOvercap int       `db:"max_overcap" json:"max_overcap"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// BuildGroupName derives the canonical group label, e.g. "103-1".
func BuildGroupName(program Program, yearLevel int) string {
	return fmt.Sprintf("%s-%d", program.Code(), yearLevel)
}

// BuildSectionCode derives the full lettered section label, e.g. "103-1A".
func BuildSectionCode(groupName, letter string) string {
	return groupName + letter
}

// BlockSection is a capacity-bounded roster belonging to exactly one group.
// CurrentPopulation is mutated only inside assignment and decision
// transactions; every other consumer treats it as a read-only snapshot.
type BlockSection struct {
	ID                string        `db:"id" json:"id"`
	GroupID           string        `db:"group_id" json:"group_id"`
	SectionCode       string        `db:"section_code" json:"section_code"`
	Capacity          int           `db:"capacity" json:"capacity"`
	CurrentPopulation int           `db:"current_population" json:"current_population"`
	Status            SectionStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// AvailableSlots is the derived free-slot count. It may be negative after a
// committed override; it is never stored.
func (s BlockSection) AvailableSlots() int {
	return s.Capacity - s.CurrentPopulation
}

// BlockSectionDetail is a section with its derived free-slot count rendered
// for API responses.
type BlockSectionDetail struct {
	BlockSection
	AvailableSlots int `json:"available_slots"`
}

// NewSectionDetail computes the derived fields for a section.
func NewSectionDetail(section BlockSection) BlockSectionDetail {
	return BlockSectionDetail{BlockSection: section, AvailableSlots: section.AvailableSlots()}
}

// BlockGroupFilter scopes group listings.
type BlockGroupFilter struct {
	Semester   Semester
	SchoolYear int
	Program    Program
	Page       int
	PageSize   int
}

// GroupSummary aggregates utilization figures for one group. All figures are
// derived from the group's sections at read time.
type GroupSummary struct {
	GroupID         string `json:"group_id"`
	Name            string `json:"name"`
	SectionCount    int    `json:"section_count"`
	OpenSections    int    `json:"open_sections"`
	TotalCapacity   int    `json:"total_capacity"`
	TotalPopulation int    `json:"total_population"`
	RemainingSlots  int    `json:"remaining_slots"`
}
