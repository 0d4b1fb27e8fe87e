package pbxproj

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSectionNotFound is returned when a named section, group or build
	// phase cannot be located in the manifest.
	ErrSectionNotFound = errors.New("section not found")
	// ErrUnbalanced is returned when a parenthesized list never closes.
	ErrUnbalanced = errors.New("unbalanced delimiter")
)

// SectionError records which section or anchor could not be located.
type SectionError struct {
	Name string
	Err  error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// SpanKind distinguishes marker-bounded sections from parenthesized arrays.
type SpanKind int

const (
	KindSection SpanKind = iota
	KindArray
)

func (k SpanKind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range [Start, End) of manifest content. For a
// section it excludes both markers; for an array it excludes both parentheses,
// so End is the offset of the closing ')'.
type Span struct {
	Name  string
	Kind  SpanKind
	Start int
	End   int
}

// Text returns the span content.
func (s Span) Text(buf string) string {
	return buf[s.Start:s.End]
}

// Contains reports whether needle occurs inside the span.
func (s Span) Contains(buf, needle string) bool {
	return strings.Contains(s.Text(buf), needle)
}

// LastIndex returns the absolute offset of the last occurrence of needle
// inside the span, or -1.
func (s Span) LastIndex(buf, needle string) int {
	i := strings.LastIndex(s.Text(buf), needle)
	if i < 0 {
		return -1
	}
	return s.Start + i
}

func beginMarker(name string) string {
	return "/* Begin " + name + " section */"
}

func endMarker(name string) string {
	return "/* End " + name + " section */"
}

// FindSection returns the content span between the begin and end markers of
// the named section.
func FindSection(buf, name string) (Span, error) {
	begin := beginMarker(name)
	start := strings.Index(buf, begin)
	if start < 0 {
		return Span{}, &SectionError{Name: name, Err: ErrSectionNotFound}
	}
	start += len(begin)

	end := strings.Index(buf[start:], endMarker(name))
	if end < 0 {
		return Span{}, &SectionError{Name: name, Err: ErrSectionNotFound}
	}

	return Span{Name: name, Kind: KindSection, Start: start, End: start + end}, nil
}

// ScanBalanced returns the offset of the ')' matching the '(' at open.
func ScanBalanced(buf string, open int) (int, error) {
	if open < 0 || open >= len(buf) || buf[open] != '(' {
		return -1, fmt.Errorf("offset %d is not an opening parenthesis: %w", open, ErrUnbalanced)
	}

	depth := 1
	for pos := open + 1; pos < len(buf); pos++ {
		switch buf[pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pos, nil
			}
		}
	}

	return -1, fmt.Errorf("no closing parenthesis for offset %d: %w", open, ErrUnbalanced)
}

// ArrayAt returns the content span of the parenthesized list opening at open.
func ArrayAt(buf string, open int, name string) (Span, error) {
	closeAt, err := ScanBalanced(buf, open)
	if err != nil {
		return Span{}, fmt.Errorf("%s: %w", name, err)
	}
	return Span{Name: name, Kind: KindArray, Start: open + 1, End: closeAt}, nil
}

// splice inserts text at pos. Every manifest edit goes through here.
func splice(buf string, pos int, text string) string {
	return buf[:pos] + text + buf[pos:]
}

// appendRecord inserts a record line after the last record terminator in the
// section, or at the top of the section when it has no records yet.
func appendRecord(buf string, section Span, record string) string {
	pos := section.Start
	if last := section.LastIndex(buf, "};"); last >= 0 {
		pos = last + len("};")
	}
	return splice(buf, pos, "\n\t\t"+record)
}

// appendMember appends "member," as the last element of a parenthesized list.
// Multi-line lists get a new line indented one tab deeper than the closing
// parenthesis; inline lists get the member right before ')'.
func appendMember(buf string, list Span, member string) string {
	lineStart := strings.LastIndex(buf[:list.End], "\n") + 1
	indent := buf[lineStart:list.End]
	if lineStart > list.Start && strings.TrimSpace(indent) == "" {
		return splice(buf, lineStart, indent+"\t"+member+",\n")
	}
	return splice(buf, list.End, " "+member+", ")
}
