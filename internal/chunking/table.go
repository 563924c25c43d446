package chunking

import (
	"fmt"
	"regexp"
	"strings"
)

// Markdown tables are lifted out of the narrative before segmentation so the
// section and paragraph machinery never sees table markup. Each table becomes
// exactly one self-contained chunk, appended after all narrative chunks and
// anchored to the nearest heading above it.

const placeholderFormat = "{{table:%d}}"

var (
	placeholderRe    = regexp.MustCompile(`\{\{table:\d+\}\}`)
	headingLineRe    = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	tableSeparatorRe = regexp.MustCompile(`^[\s|:\-]+$`)
)

type table struct {
	raw     string // original table lines, unmodified
	heading string // nearest heading line above the table, markers stripped
}

// extractTables removes every markdown table from text, substituting a unique
// placeholder line per table. A table is a contiguous run of two or more lines
// each containing a pipe. The nearest heading is the closest heading line
// above the table's first line in the original text.
func extractTables(text string) ([]table, string) {
	lines := strings.Split(text, "\n")
	var tables []table
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		if !strings.Contains(lines[i], "|") {
			out = append(out, lines[i])
			i++
			continue
		}

		j := i
		for j < len(lines) && strings.Contains(lines[j], "|") {
			j++
		}
		if j-i < 2 {
			out = append(out, lines[i:j]...)
			i = j
			continue
		}

		tables = append(tables, table{
			raw:     strings.Join(lines[i:j], "\n"),
			heading: nearestHeading(lines, i),
		})
		out = append(out, fmt.Sprintf(placeholderFormat, len(tables)-1))
		i = j
	}

	return tables, strings.Join(out, "\n")
}

// nearestHeading scans backward from the table's first line and returns the
// closest heading line above it, stripped of its markers.
func nearestHeading(lines []string, start int) string {
	for k := start - 1; k >= 0; k-- {
		if m := headingLineRe.FindStringSubmatch(lines[k]); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}

// normalize renders the table as natural-language sentences, one per data
// row: "header: value" pairs joined by commas, closed with a period, empty
// cells omitted. A table with no data rows falls back to its original text.
func (t table) normalize() string {
	var rows [][]string
	for _, line := range strings.Split(t.raw, "\n") {
		if tableSeparatorRe.MatchString(line) {
			continue
		}
		cells := splitRow(line)
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}

	if len(rows) < 2 {
		return strings.TrimSpace(t.raw)
	}

	headers := rows[0]
	var sentences []string
	for _, row := range rows[1:] {
		var pairs []string
		for ci, cell := range row {
			if ci >= len(headers) {
				break
			}
			if cell == "" || headers[ci] == "" {
				continue
			}
			pairs = append(pairs, headers[ci]+": "+cell)
		}
		if len(pairs) > 0 {
			sentences = append(sentences, strings.Join(pairs, ", ")+".")
		}
	}

	if len(sentences) == 0 {
		return strings.TrimSpace(t.raw)
	}
	return strings.Join(sentences, "\n")
}

// render assembles the final chunk: document title, anchoring heading, then
// the normalized rows, blank-line separated.
func (t table) render(title string) string {
	var parts []string
	if title != "" {
		parts = append(parts, title)
	}
	if t.heading != "" {
		parts = append(parts, t.heading)
	}
	parts = append(parts, t.normalize())
	return strings.Join(parts, "\n\n")
}

// splitRow splits a table line into trimmed cells, dropping the empty edge
// cells produced by leading/trailing pipes.
func splitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// stripPlaceholders removes table placeholders from text; used to decide
// whether a section holds any real content.
func stripPlaceholders(text string) string {
	return placeholderRe.ReplaceAllString(text, "")
}
