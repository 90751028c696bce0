// Package journal implements the section model of a journal entry body.
//
// A body is split lexically on lines starting with the level-2 heading
// marker. Section 0 is the preamble (usually the date line); every following
// section starts with its heading line.
package journal

import (
	"errors"
	"strings"
)

// HeadingMarker is the literal prefix that starts a new section.
const HeadingMarker = "## "

var ErrIndexOutOfRange = errors.New("section index out of range")

type Section struct {
	// Heading is the full heading line including the marker. Empty for the preamble.
	Heading string `json:"heading"`
	// Lines are the body lines following the heading. Never nil.
	Lines []string `json:"lines"`
}

// IsPreamble reports whether the section is the text before the first heading.
func (s Section) IsPreamble() bool {
	return s.Heading == ""
}

// Title returns the heading text without the marker.
func (s Section) Title() string {
	return strings.TrimSpace(strings.TrimPrefix(s.Heading, HeadingMarker))
}

// Text returns the raw markdown of the section.
func (s Section) Text() string {
	body := strings.Join(s.Lines, "\n")
	if s.IsPreamble() {
		return body
	}
	if len(s.Lines) == 0 {
		return s.Heading
	}
	return s.Heading + "\n" + body
}

// Split breaks body into its preamble and heading sections. The result always
// holds at least the preamble, which may be empty.
func Split(body string) []Section {
	lines := splitLines(body)

	sections := []Section{{}}
	preamble := []string{}
	for _, line := range lines {
		if strings.HasPrefix(line, HeadingMarker) {
			sections = append(sections, Section{Heading: line})
			continue
		}
		if len(sections) == 1 {
			preamble = append(preamble, line)
			continue
		}
		last := &sections[len(sections)-1]
		last.Lines = append(last.Lines, line)
	}

	// The newline ending the preamble belongs to the preamble.
	if len(sections) > 1 && len(preamble) > 0 {
		preamble = append(preamble, "")
	}
	sections[0].Lines = preamble
	for i := 1; i < len(sections); i++ {
		sections[i].Lines = trimTrailingBlank(sections[i].Lines)
	}
	return sections
}

// SectionBody returns every line after the heading, joined by newlines.
func SectionBody(s Section) string {
	return strings.Join(s.Lines, "\n")
}

// ReplaceSectionBody returns a copy of sections where the body of
// sections[index] is replaced by text. The heading line is kept as-is.
// The preamble is not addressable.
func ReplaceSectionBody(sections []Section, index int, text string) ([]Section, error) {
	if index <= 0 || index >= len(sections) {
		return nil, ErrIndexOutOfRange
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{Heading: s.Heading, Lines: append([]string{}, s.Lines...)}
	}
	out[index].Lines = splitLines(text)
	return out, nil
}

// Join concatenates sections separated by one blank line. Trailing newlines
// of each section are dropped and an empty preamble is omitted, so
// Join(Split(b)) is a fixed point of Split.
func Join(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for i, s := range sections {
		text := strings.TrimRight(s.Text(), "\n")
		if i == 0 && s.IsPreamble() && strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// splitLines splits on LF and drops the CR of CRLF line endings.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines)-1; i++ {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	if end == 0 {
		return []string{}
	}
	return lines[:end]
}
