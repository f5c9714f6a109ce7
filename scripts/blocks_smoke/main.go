// Command blocks_smoke runs a quick end-to-end pass against a running blocks
// API: list groups, list a group's sections and assignable students, then
// optionally attempt one assignment and report the outcome. Useful after
// deployments and schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/campuskit/blocks-api/pkg/blockclient"
)

func main() {
	var (
		base       string
		token      string
		groupID    string
		sectionID  string
		studentID  string
		semester   string
		schoolYear string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api", "blocks API base URL including the API prefix")
	flag.StringVar(&token, "token", os.Getenv("BLOCKS_TOKEN"), "bearer token (defaults to BLOCKS_TOKEN)")
	flag.StringVar(&groupID, "group", "", "group ID to inspect")
	flag.StringVar(&sectionID, "section", "", "section ID to assign into (optional)")
	flag.StringVar(&studentID, "student", "", "student ID to assign (optional)")
	flag.StringVar(&semester, "semester", "FIRST", "semester")
	flag.StringVar(&schoolYear, "year", "", "school year label, e.g. 2025-2026")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout")
	flag.Parse()

	client := blockclient.New(base, token, blockclient.WithTimeout(timeout))
	ctx := context.Background()

	groups, _, err := client.ListGroups(ctx, blockclient.GroupFilter{Limit: 10})
	if err != nil {
		log.Fatalf("list groups: %v", err)
	}
	fmt.Printf("groups: %d\n", len(groups))
	for _, g := range groups {
		fmt.Printf("  %s  %s (%s %d, %s %d)\n", g.ID, g.Name, g.Program, g.YearLevel, g.Semester, g.SchoolYear)
	}

	if groupID == "" {
		if len(groups) == 0 {
			return
		}
		groupID = groups[0].ID
	}

	sections, err := client.ListSections(ctx, groupID)
	if err != nil {
		log.Fatalf("list sections: %v", err)
	}
	fmt.Printf("sections in %s: %d\n", groupID, len(sections))
	for _, s := range sections {
		fmt.Printf("  %s  %s  %d/%d (%s)\n", s.ID, s.SectionCode, s.CurrentPopulation, s.Capacity, s.Status)
	}

	if studentID == "" || sectionID == "" || schoolYear == "" {
		return
	}

	start, err := blockclient.ParseSchoolYear(schoolYear)
	if err != nil {
		log.Fatalf("bad -year: %v", err)
	}

	outcome, err := client.AssignStudent(ctx, blockclient.AssignRequest{
		StudentID:  studentID,
		SectionID:  sectionID,
		Semester:   blockclient.Semester(semester),
		SchoolYear: start,
	})
	if err != nil {
		log.Fatalf("assign: %v", err)
	}

	switch outcome.Status {
	case blockclient.OutcomeAssigned:
		fmt.Printf("assigned: %s -> %s\n", outcome.Assignment.StudentID, outcome.Assignment.SectionID)
	case blockclient.OutcomeOverCapacity:
		fmt.Printf("over capacity: section %s projected %d/%d, resolution %s\n",
			outcome.Section.SectionCode, outcome.ProjectedPopulation, outcome.Section.Capacity, outcome.ResolutionID)
		fmt.Printf("  allowed: %v\n", outcome.AllowedActions)
		for _, s := range outcome.SuggestedSections {
			fmt.Printf("  suggestion: %s (%d free)\n", s.SectionCode, s.AvailableSlots)
		}
		if err := client.CancelResolution(ctx, outcome.ResolutionID); err != nil {
			log.Printf("cancel resolution: %v", err)
		}
	}
}
