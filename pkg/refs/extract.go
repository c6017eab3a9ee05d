package refs

import (
	"regexp"
	"strconv"
	"strings"
)

// Ticket references look like ENG-1 or PROJ-456: a short uppercase project
// code, a hyphen, and a numeric suffix. The prefix match is case sensitive;
// callers wanting case-insensitive behavior must uppercase the input first.
var ticketPattern = regexp.MustCompile(`([A-Z]{2,5})-(\d{1,5})`)

// Extract scans free text for ticket references and returns the canonical
// forms in first-occurrence order, deduplicated. It returns an empty slice
// for empty input and never fails: this is the only parsing the platform
// does, and the output strings are used verbatim as join keys.
func Extract(text string) []string {
	out := make([]string, 0)
	if text == "" {
		return out
	}

	seen := make(map[string]struct{})
	for _, m := range ticketPattern.FindAllStringSubmatch(text, -1) {
		ref := canonicalize(m[1], m[2])
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Canonical normalizes a producer-supplied reference string. It returns the
// canonical form and true when the input is a well-formed reference, or
// "" and false otherwise.
func Canonical(ref string) (string, bool) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	m := ticketPattern.FindStringSubmatch(ref)
	if m == nil || m[0] != ref {
		return "", false
	}
	return canonicalize(m[1], m[2]), true
}

// canonicalize strips leading zeros from the numeric suffix so ENG-007 and
// ENG-7 resolve to the same key.
func canonicalize(code, number string) string {
	n, err := strconv.Atoi(number)
	if err != nil {
		return code + "-" + number
	}
	return code + "-" + strconv.Itoa(n)
}
