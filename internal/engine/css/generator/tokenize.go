package generator

import "strings"

func isDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '"', '\'', '`', '{', '}', '(', ')', '<', '>', ';', ',', '=', '$', '\\', '+', '*', '!', '?', '|', '&', '@', '^', '~':
		return true
	}
	return false
}

func allowedChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case ':', '/', '[', ']', '-', '.', '#', '%', '_':
		return true
	}
	return false
}

// Candidate reports whether token could be a utility class.
func Candidate(token string) bool {
	if len(token) < 2 || len(token) > 120 {
		return false
	}
	hasLetter := false
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !allowedChar(c) {
			return false
		}
		if c >= 'a' && c <= 'z' {
			hasLetter = true
		}
	}
	if !hasLetter {
		return false
	}
	last := token[len(token)-1]
	return last != ':' && last != '.' && last != '/' && token[0] != '.' && token[0] != '/'
}

// Tokenize splits content on whitespace, quotes and punctuation and keeps
// the distinct candidate tokens in first-seen order.
func Tokenize(content string) []string {
	fields := strings.FieldsFunc(content, isDelimiter)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !Candidate(f) {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
