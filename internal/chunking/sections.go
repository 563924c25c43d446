package chunking

import (
	"regexp"
	"strings"
)

var (
	sectionHeadingRe = regexp.MustCompile(`^#{2,3}\s`)
	titleLineRe      = regexp.MustCompile(`^#\s+\S`)
)

// splitSections splits placeholder-substituted text at level-2/3 headings,
// keeping each heading line with the section that follows it. A level-1
// heading found before the first split is extracted once as the document
// title and removed from the section stream; callers prefix it to every
// chunk's context header instead. Sections that are empty after trimming, or
// that consist only of table placeholders, are skipped.
func splitSections(text string) (title string, sections []string) {
	lines := strings.Split(text, "\n")

	var cur []string
	titleFound := false
	splitSeen := false

	flush := func() {
		if len(cur) == 0 {
			return
		}
		section := strings.Join(cur, "\n")
		cur = nil
		// Placeholders are dropped here: the table content they stand for is
		// re-attached as dedicated chunks after the narrative is finalized.
		section = strings.TrimSpace(stripPlaceholders(section))
		if section == "" {
			return
		}
		sections = append(sections, section)
	}

	for _, line := range lines {
		if sectionHeadingRe.MatchString(line) {
			splitSeen = true
			flush()
			cur = append(cur, line)
			continue
		}
		if !titleFound && !splitSeen && titleLineRe.MatchString(line) {
			title = strings.TrimSpace(line)
			titleFound = true
			continue
		}
		cur = append(cur, line)
	}
	flush()

	return title, sections
}

// splitHeading separates a section's leading heading line from its body.
func splitHeading(section string) (heading, body string) {
	if !sectionHeadingRe.MatchString(section) {
		return "", section
	}
	parts := strings.SplitN(section, "\n", 2)
	heading = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		body = parts[1]
	}
	return heading, body
}

// blankLineRe matches paragraph boundaries.
var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// splitBlankLines splits text into trimmed, non-empty paragraphs.
func splitBlankLines(text string) []string {
	raw := blankLineRe.Split(text, -1)
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paras = append(paras, p)
	}
	return paras
}
