package models

import (
	"strings"
	"time"
)

// StudentStatus mirrors the registrar's standing flag on a student record.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student is a learner record. This service reads students but never writes
// them; enrollment ownership lives with the registrar system.
type Student struct {
	ID            string        `db:"id" json:"id"`
	FirstName     string        `db:"first_name" json:"first_name"`
	LastName      string        `db:"last_name" json:"last_name"`
	Course        string        `db:"course" json:"course"`
	YearLevel     int           `db:"year_level" json:"year_level"`
	Status        StudentStatus `db:"status" json:"status"`
	StudentNumber string        `db:"student_number" json:"student_number"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Program classifies the student's raw course field.
func (s Student) Program() Program {
	return ProgramFromText(s.Course)
}

// StudentDetail is a student rendered for API responses with the canonical
// student number and the resolved program alongside the raw record.
type StudentDetail struct {
	Student
	CanonicalNumber string  `json:"canonical_number"`
	ResolvedProgram Program `json:"resolved_program"`
}

// NewStudentDetail derives the canonical fields for a student.
func NewStudentDetail(student Student) StudentDetail {
	return StudentDetail{
		Student:         student,
		CanonicalNumber: FormatStudentNumber(student),
		ResolvedProgram: student.Program(),
	}
}

// AssignableStudentFilter scopes the assignable-student search.
type AssignableStudentFilter struct {
	GroupID    string
	Semester   Semester
	SchoolYear int
	Query      string
	Page       int
	PageSize   int
}

// FormatStudentNumber rebuilds the canonical YYYY-CCC-SSSSS identifier from a
// ragged student record. It is a total function: unparseable parts degrade to
// zero-valued defaults, and applying it to a student already carrying its own
// output returns the same string.
func FormatStudentNumber(student Student) string {
	parts := strings.Split(student.StudentNumber, "-")

	year := "0000"
	for _, part := range parts {
		if len(part) == 4 && allDigits(part) {
			year = part
			break
		}
	}

	sequence := "00000"
	for _, part := range parts {
		if part != "" && allDigits(part) {
			sequence = part
		}
	}
	if len(sequence) < 5 {
		sequence = strings.Repeat("0", 5-len(sequence)) + sequence
	}

	code := ProgramFromText(student.Course).Code()
	if code == "" {
		code = ExtractProgram(student.StudentNumber).Code()
	}
	if code == "" {
		code = "000"
	}

	return year + "-" + code + "-" + sequence
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
