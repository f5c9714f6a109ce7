package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramFromCode(t *testing.T) {
	assert.Equal(t, ProgramBEED, ProgramFromCode("101"))
	assert.Equal(t, ProgramBSED, ProgramFromCode("102"))
	assert.Equal(t, ProgramBSIT, ProgramFromCode("103"))
	assert.Equal(t, ProgramHRM, ProgramFromCode("201"))
	assert.Equal(t, ProgramUnknown, ProgramFromCode("999"))
	assert.Equal(t, ProgramUnknown, ProgramFromCode(""))
}

func TestProgramFromText(t *testing.T) {
	cases := []struct {
		input string
		want  Program
	}{
		{"BSIT", ProgramBSIT},
		{"bs information technology", ProgramBSIT},
		{"Info-Tech", ProgramBSIT},
		{"BEED", ProgramBEED},
		{"Bachelor of Elementary Education", ProgramBEED},
		{"BSEd-Math", ProgramBSED},
		{"secondary education", ProgramBSED},
		{"HRM", ProgramHRM},
		{"Hotel and Restaurant Management", ProgramHRM},
		{"hospitality_management", ProgramHRM},
		{"103", ProgramBSIT},
		{"culinary arts", ProgramUnknown},
		{"", ProgramUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ProgramFromText(tc.input), "input %q", tc.input)
	}
}

func TestProgramFromTextIdempotentOnAbbreviation(t *testing.T) {
	// Classifying a program's own abbreviation must return that program.
	for _, p := range []Program{ProgramBEED, ProgramBSED, ProgramBSIT, ProgramHRM} {
		assert.Equal(t, p, ProgramFromText(p.Abbreviation()))
		assert.Equal(t, p, ProgramFromCode(p.Code()))
	}
}

func TestExtractProgram(t *testing.T) {
	assert.Equal(t, ProgramBSIT, ExtractProgram("103-1A"))
	assert.Equal(t, ProgramHRM, ExtractProgram("Section 201-3B roster"))
	assert.Equal(t, ProgramBSED, ExtractProgram("BSEd Mathematics block"))
	// Embedded codes win over keyword fallback.
	assert.Equal(t, ProgramBEED, ExtractProgram("101 hospitality annex"))
	assert.Equal(t, ProgramUnknown, ExtractProgram("999-1A"))
}

func TestProgramCodeRoundTrip(t *testing.T) {
	assert.Equal(t, "103", ProgramBSIT.Code())
	assert.Equal(t, "", ProgramUnknown.Code())
	assert.Equal(t, "", ProgramUnknown.Abbreviation())
	assert.False(t, ProgramUnknown.Valid())
}
