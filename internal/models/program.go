package models

import (
	"regexp"
	"strings"
)

// Program enumerates the degree programs sections are organized under.
// The zero value ProgramUnknown is a first-class variant: callers must handle
// it explicitly instead of treating an empty code as a real program.
type Program string

const (
	ProgramUnknown Program = ""
	ProgramBEED    Program = "BEED"
	ProgramBSED    Program = "BSED"
	ProgramBSIT    Program = "BSIT"
	ProgramHRM     Program = "HRM"
)

// programCodes is the single authoritative mapping between programs and the
// numeric codes used in group and section labels.
var programCodes = map[Program]string{
	ProgramBEED: "101",
	ProgramBSED: "102",
	ProgramBSIT: "103",
	ProgramHRM:  "201",
}

// programKeywords maps normalized substrings to programs. Matching runs in
// declaration order so more specific keywords win over shorter ones.
var programKeywords = []struct {
	keyword string
	program Program
}{
	{"beed", ProgramBEED},
	{"elementaryeducation", ProgramBEED},
	{"bsed", ProgramBSED},
	{"secondaryeducation", ProgramBSED},
	{"math", ProgramBSED},
	{"bsit", ProgramBSIT},
	{"informationtechnology", ProgramBSIT},
	{"infotech", ProgramBSIT},
	{"hrm", ProgramHRM},
	{"hospitality", ProgramHRM},
	{"hotel", ProgramHRM},
	{"restaurant", ProgramHRM},
}

var embeddedCodePattern = regexp.MustCompile(`\b(\d{3})\b`)

// Valid reports whether the program is one of the known variants.
func (p Program) Valid() bool {
	switch p {
	case ProgramBEED, ProgramBSED, ProgramBSIT, ProgramHRM:
		return true
	default:
		return false
	}
}

// Code returns the numeric program code, or "" for ProgramUnknown.
func (p Program) Code() string {
	return programCodes[p]
}

// Abbreviation returns the display abbreviation, or "" for ProgramUnknown.
func (p Program) Abbreviation() string {
	if p.Valid() {
		return string(p)
	}
	return ""
}

// ProgramFromCode resolves a numeric code string ("101", "103", ...) to its
// program. Unrecognized codes yield ProgramUnknown.
func ProgramFromCode(raw string) Program {
	raw = strings.TrimSpace(raw)
	for program, code := range programCodes {
		if code == raw {
			return program
		}
	}
	return ProgramUnknown
}

// ProgramFromText classifies a free-form program name or abbreviation
// ("BEED", "BSEd-Math", "hotel and restaurant mgmt"). Matching is case,
// whitespace, underscore and hyphen insensitive substring matching against a
// fixed keyword table. Unrecognized input yields ProgramUnknown.
func ProgramFromText(raw string) Program {
	if program := ProgramFromCode(raw); program != ProgramUnknown {
		return program
	}
	normalized := normalizeProgramText(raw)
	if normalized == "" {
		return ProgramUnknown
	}
	for _, entry := range programKeywords {
		if strings.Contains(normalized, entry.keyword) {
			return entry.program
		}
	}
	return ProgramUnknown
}

// ExtractProgram resolves the program referenced inside a composite label such
// as a group name ("103-1A") or a course description. Embedded three-digit
// code tokens are checked first; keyword matching is the fallback.
func ExtractProgram(label string) Program {
	for _, match := range embeddedCodePattern.FindAllString(label, -1) {
		if program := ProgramFromCode(match); program != ProgramUnknown {
			return program
		}
	}
	return ProgramFromText(label)
}

func normalizeProgramText(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case ' ', '\t', '_', '-', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
