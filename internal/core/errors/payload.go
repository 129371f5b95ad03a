package errors

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// FrameWidth bounds the excerpt shown in the overlay.
const FrameWidth = 80

// Payload is the error shape pushed to browsers.
type Payload struct {
	Message string `json:"message"`
	File    string `json:"file"`
	Frame   string `json:"frame,omitempty"`
}

// ToPayload flattens any error into the overlay payload.
func ToPayload(err error) Payload {
	if err == nil {
		return Payload{}
	}
	var de *DomainError
	if !errors.As(err, &de) {
		return Payload{Message: err.Error()}
	}
	p := Payload{
		Message: de.Message,
		File:    de.ContextString(CtxPath),
		Frame:   de.ContextString(CtxFrame),
	}
	if de.Err != nil {
		p.Message = fmt.Sprintf("%s: %v", p.Message, de.Err)
	}
	if tok := de.ContextString(CtxToken); tok != "" && !strings.Contains(p.Message, tok) {
		p.Message = fmt.Sprintf("%s (%s)", p.Message, tok)
	}
	return p
}

// Frame returns the 1-based line of source, trimmed and cut to FrameWidth
// characters, prefixed with its line number.
func Frame(source string, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	text := strings.TrimRight(lines[line-1], "\r")
	text = strings.ReplaceAll(text, "\t", "  ")
	if utf8.RuneCountInString(text) > FrameWidth {
		runes := []rune(text)
		text = string(runes[:FrameWidth-3]) + "..."
	}
	return fmt.Sprintf("%4d | %s", line, text)
}

// LineOf returns the 1-based line containing byte offset off.
func LineOf(source string, off int) int {
	if off < 0 {
		return 1
	}
	if off > len(source) {
		off = len(source)
	}
	return strings.Count(source[:off], "\n") + 1
}
