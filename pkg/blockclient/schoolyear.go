package blockclient

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSchoolYear parses a "2024-2025" style school-year label and returns
// its starting year. Malformed labels are rejected here so they are never
// sent to the server.
func ParseSchoolYear(label string) (int, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("school year must look like 2024-2025, got %q", label)
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid school year start %q", parts[0])
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid school year end %q", parts[1])
	}

	if start < 1900 || start > 9999 {
		return 0, fmt.Errorf("school year start %d out of range", start)
	}
	if end != start+1 {
		return 0, fmt.Errorf("school year %q must span consecutive years", label)
	}
	return start, nil
}

// FormatSchoolYear renders a starting year as its "2024-2025" label.
func FormatSchoolYear(start int) string {
	return fmt.Sprintf("%d-%d", start, start+1)
}
